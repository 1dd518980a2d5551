package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-contacts-api/internal/model"
	"go-contacts-api/internal/util"
)

const (
	MinPageLimit          = 10
	MaxPageLimit          = 500
	DefaultPageLimit      = 10
	DefaultBirthdayWindow = 7
	maxBirthdayWindow     = 366

	maxNameLen  = 50
	maxPhoneLen = 30
	maxInfoLen  = 250
)

type ContactStore interface {
	List(ctx context.Context, userID string, page model.Page) ([]model.Contact, error)
	ListAll(ctx context.Context, page model.Page) ([]model.Contact, error)
	Get(ctx context.Context, userID string, id int64) (model.Contact, error)
	FindByName(ctx context.Context, userID string, pattern string) ([]model.Contact, error)
	FindBySurname(ctx context.Context, userID string, pattern string) ([]model.Contact, error)
	FindByEmail(ctx context.Context, userID string, email string) (model.Contact, error)
	FindByBirthday(ctx context.Context, userID string, window model.DateWindow) ([]model.Contact, error)
	Create(ctx context.Context, contact model.Contact) (model.Contact, error)
	Update(ctx context.Context, contact model.Contact) (model.Contact, error)
	Delete(ctx context.Context, userID string, id int64) error
}

// ContactService serves the owner-scoped contact book and its searches.
type ContactService struct {
	contacts ContactStore
	now      func() time.Time
}

func NewContactService(contacts ContactStore) *ContactService {
	return &ContactService{contacts: contacts, now: time.Now}
}

// NewPage validates pagination bounds shared by the list endpoints.
func NewPage(limit int, offset int) (model.Page, error) {
	if limit < MinPageLimit || limit > MaxPageLimit {
		return model.Page{}, invalidInput("limit must be between 10 and 500", "limit")
	}
	if offset < 0 {
		return model.Page{}, invalidInput("offset must be zero or greater", "offset")
	}
	return model.Page{Limit: limit, Offset: offset}, nil
}

func (s *ContactService) List(ctx context.Context, user model.User, page model.Page) ([]model.Contact, error) {
	return s.contacts.List(ctx, user.ID, page)
}

func (s *ContactService) ListAll(ctx context.Context, page model.Page) ([]model.Contact, error) {
	return s.contacts.ListAll(ctx, page)
}

func (s *ContactService) Get(ctx context.Context, user model.User, id int64) (model.Contact, error) {
	if id < 1 {
		return model.Contact{}, invalidInput("contact id must be positive", "contact_id")
	}
	contact, err := s.contacts.Get(ctx, user.ID, id)
	return contact, mapContactErr(err)
}

func (s *ContactService) SearchByName(ctx context.Context, user model.User, name string) ([]model.Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidInput("name is required", "name")
	}
	return s.contacts.FindByName(ctx, user.ID, name)
}

func (s *ContactService) SearchBySurname(ctx context.Context, user model.User, surname string) ([]model.Contact, error) {
	surname = strings.TrimSpace(surname)
	if surname == "" {
		return nil, invalidInput("surname is required", "surname")
	}
	return s.contacts.FindBySurname(ctx, user.ID, surname)
}

func (s *ContactService) SearchByEmail(ctx context.Context, user model.User, email string) (model.Contact, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.Contact{}, invalidInput("email is required", "email")
	}
	contact, err := s.contacts.FindByEmail(ctx, user.ID, email)
	return contact, mapContactErr(err)
}

// SearchByBirthday returns contacts whose birthday falls in [from, from+days].
// An empty from means today.
func (s *ContactService) SearchByBirthday(ctx context.Context, user model.User, from string, days int) ([]model.Contact, error) {
	start := s.now().UTC()
	if strings.TrimSpace(from) != "" {
		parsed, err := time.Parse(model.DateLayout, strings.TrimSpace(from))
		if err != nil {
			return nil, invalidInput("birthday must be formatted as YYYY-MM-DD", "birthday")
		}
		start = parsed
	}
	if days < 0 || days > maxBirthdayWindow {
		return nil, invalidInput("n must be between 0 and 366", "n")
	}

	return s.contacts.FindByBirthday(ctx, user.ID, model.NewDateWindow(start, days))
}

func (s *ContactService) Create(ctx context.Context, user model.User, req model.ContactRequest) (model.Contact, error) {
	contact, err := contactFromRequest(req)
	if err != nil {
		return model.Contact{}, err
	}
	contact.UserID = user.ID

	created, err := s.contacts.Create(ctx, contact)
	return created, mapContactErr(err)
}

func (s *ContactService) Update(ctx context.Context, user model.User, id int64, req model.ContactRequest) (model.Contact, error) {
	if id < 1 {
		return model.Contact{}, invalidInput("contact id must be positive", "contact_id")
	}
	contact, err := contactFromRequest(req)
	if err != nil {
		return model.Contact{}, err
	}
	contact.ID = id
	contact.UserID = user.ID

	updated, err := s.contacts.Update(ctx, contact)
	return updated, mapContactErr(err)
}

func (s *ContactService) Delete(ctx context.Context, user model.User, id int64) error {
	if id < 1 {
		return invalidInput("contact id must be positive", "contact_id")
	}
	return mapContactErr(s.contacts.Delete(ctx, user.ID, id))
}

func contactFromRequest(req model.ContactRequest) (model.Contact, error) {
	contact := model.Contact{
		Name:    util.CleanText(req.Name, false),
		Surname: util.CleanText(req.Surname, false),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Info:    util.CleanText(req.Info, true),
	}

	if err := validateLength(contact.Name, "name", 1, maxNameLen); err != nil {
		return model.Contact{}, err
	}
	if err := validateLength(contact.Surname, "surname", 1, maxNameLen); err != nil {
		return model.Contact{}, err
	}
	if err := validateEmail(contact.Email); err != nil {
		return model.Contact{}, err
	}
	if !validPhone(contact.Phone) {
		return model.Contact{}, invalidInput("phone may contain digits, spaces and + - ( ) only", "phone")
	}
	if err := validateLength(contact.Info, "info", 0, maxInfoLen); err != nil {
		return model.Contact{}, err
	}

	if raw := strings.TrimSpace(req.Birthday); raw != "" {
		day, err := time.Parse(model.DateLayout, raw)
		if err != nil {
			return model.Contact{}, invalidInput("birthday must be formatted as YYYY-MM-DD", "birthday")
		}
		contact.Birthday = &day
	}

	return contact, nil
}

func validPhone(phone string) bool {
	if phone == "" || len(phone) > maxPhoneLen {
		return false
	}
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
		case strings.ContainsRune("+-() ", r):
		default:
			return false
		}
	}
	return true
}

func mapContactErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrContactNotFound):
		return notFound(err, "Contact not found")
	case errors.Is(err, model.ErrConflict):
		return conflict("Contact with this email already exists")
	default:
		return err
	}
}
