package domain

// Role names shipped as reference data.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type RoleRepository interface {
	GetByID(id int64) (*Role, error)
	GetByName(name string) (*Role, error)
	List() ([]*Role, error)
}
