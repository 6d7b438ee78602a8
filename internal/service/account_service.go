package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/shinyyama/campus-market/internal/model"
	"github.com/shinyyama/campus-market/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	minPasswordLength = 8
	maxPasswordBytes  = 72
	maxNameLength     = 150
)

var (
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
	validate        = validator.New()

	// compared against when the username is unknown so both paths cost one bcrypt run
	dummyHash, _ = bcrypt.GenerateFromPassword([]byte("campus-market"), bcrypt.DefaultCost)
)

type SignupInput struct {
	Username  string
	Email     string
	Password1 string
	Password2 string
}

type ProfileInput struct {
	FirstName string
	LastName  string
	Email     string
}

type PasswordChangeInput struct {
	OldPassword  string
	NewPassword1 string
	NewPassword2 string
}

type AccountService interface {
	Signup(ctx context.Context, in SignupInput) (*model.User, error)
	// Authenticate returns ErrInvalidCredentials for an unknown user or a wrong password.
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	Get(ctx context.Context, id uint64) (*model.User, error)
	UpdateProfile(ctx context.Context, id uint64, in ProfileInput) (*model.User, error)
	ChangePassword(ctx context.Context, id uint64, in PasswordChangeInput) error
}

type accountService struct {
	repo repository.UserRepository
	cost int
}

func NewAccountService(repo repository.UserRepository) AccountService {
	return &accountService{repo: repo, cost: bcrypt.DefaultCost}
}

func (s *accountService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	v := &ValidationError{}
	username := strings.TrimSpace(in.Username)
	switch {
	case username == "":
		v.Add("username", msgRequired)
	case utf8.RuneCountInString(username) > maxNameLength:
		v.Add("username", "Ensure this value has at most 150 characters.")
	case !usernamePattern.MatchString(username):
		v.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	default:
		taken, err := s.repo.UsernameTaken(ctx, username)
		if err != nil {
			return nil, err
		}
		if taken {
			v.Add("username", "A user with that username already exists.")
		}
	}
	email := strings.TrimSpace(in.Email)
	if msg := checkEmail(email); msg != "" {
		v.Add("email", msg)
	}
	checkNewPassword(v, "password1", "password2", in.Password1, in.Password2)
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password1), s.cost)
	if err != nil {
		return nil, err
	}
	u := &model.User{Username: username, Email: email, PasswordHash: string(hash)}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *accountService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *accountService) Get(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *accountService) UpdateProfile(ctx context.Context, id uint64, in ProfileInput) (*model.User, error) {
	v := &ValidationError{}
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	email := strings.TrimSpace(in.Email)
	if utf8.RuneCountInString(first) > maxNameLength {
		v.Add("first_name", "Ensure this value has at most 150 characters.")
	}
	if utf8.RuneCountInString(last) > maxNameLength {
		v.Add("last_name", "Ensure this value has at most 150 characters.")
	}
	if msg := checkEmail(email); msg != "" {
		v.Add("email", msg)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProfile(ctx, id, first, last, email); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *accountService) ChangePassword(ctx context.Context, id uint64, in PasswordChangeInput) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	v := &ValidationError{}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.OldPassword)) != nil {
		v.Add("old_password", "Your old password was entered incorrectly. Please enter it again.")
	}
	checkNewPassword(v, "new_password1", "new_password2", in.NewPassword1, in.NewPassword2)
	if err := v.Err(); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword1), s.cost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, string(hash))
}

func checkEmail(email string) string {
	if email == "" {
		return ""
	}
	if len(email) > 254 || validate.Var(email, "email") != nil {
		return "Enter a valid email address."
	}
	return ""
}

func checkNewPassword(v *ValidationError, field, confirmField, password, confirm string) {
	if password == "" {
		v.Add(field, msgRequired)
	}
	if confirm == "" {
		v.Add(confirmField, msgRequired)
	}
	if password == "" || confirm == "" {
		return
	}
	if password != confirm {
		v.Add(confirmField, "The two password fields didn't match.")
		return
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		v.Add(confirmField, "This password is too short. It must contain at least 8 characters.")
	}
	if len(password) > maxPasswordBytes {
		v.Add(confirmField, "This password is too long. It must contain at most 72 bytes.")
	}
	if isNumeric(password) {
		v.Add(confirmField, "This password is entirely numeric.")
	}
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
