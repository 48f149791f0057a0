package usecase

import (
	"errors"

	"github.com/shopfloor/backend/internal/auth"
	"github.com/shopfloor/backend/internal/domain"
)

var (
	ErrEmailExists  = errors.New("email already exists")
	ErrUserNotFound = errors.New("user not found")
	ErrRoleNotFound = errors.New("role not found")
)

type UserUsecase struct {
	userRepo domain.UserRepository
	roleRepo domain.RoleRepository
	hasher   auth.PasswordHasher
}

func NewUserUsecase(userRepo domain.UserRepository, roleRepo domain.RoleRepository, hasher auth.PasswordHasher) *UserUsecase {
	return &UserUsecase{
		userRepo: userRepo,
		roleRepo: roleRepo,
		hasher:   hasher,
	}
}

// Register creates an account with the default "user" role.
func (u *UserUsecase) Register(email, password, firstName, lastName string) (*domain.User, error) {
	existing, err := u.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	role, err := u.roleRepo.GetByName(domain.RoleUser)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}

	passwordHash, err := u.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		RoleID:       role.ID,
	}
	if err := u.userRepo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (u *UserUsecase) GetByID(id int64) (*domain.User, error) {
	return u.userRepo.GetByID(id)
}

// View resolves the user's role name and builds the API-facing shape.
func (u *UserUsecase) View(user *domain.User) (*domain.UserView, error) {
	role, err := u.roleRepo.GetByID(user.RoleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	return user.View(role.Name), nil
}

func (u *UserUsecase) List() ([]*domain.UserView, error) {
	users, err := u.userRepo.List()
	if err != nil {
		return nil, err
	}

	views := make([]*domain.UserView, 0, len(users))
	for _, user := range users {
		view, err := u.View(user)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (u *UserUsecase) Update(id int64, email, firstName, lastName string) (*domain.User, error) {
	user, err := u.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	user.Email = email
	user.FirstName = firstName
	user.LastName = lastName
	if err := u.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (u *UserUsecase) ChangePassword(id int64, newPassword string) error {
	passwordHash, err := u.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	return u.userRepo.UpdatePassword(id, passwordHash)
}

func (u *UserUsecase) UpdateRole(userID, roleID int64) error {
	role, err := u.roleRepo.GetByID(roleID)
	if err != nil {
		return err
	}
	if role == nil {
		return ErrRoleNotFound
	}
	return u.userRepo.UpdateRole(userID, roleID)
}

// Delete removes the user; the store cascades the delete to any refresh
// token the user still holds.
func (u *UserUsecase) Delete(id int64) error {
	return u.userRepo.Delete(id)
}
