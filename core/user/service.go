package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/yedirenklicinar/akademi/core"
)

var (
	// errors
	ErrNotFound      = errors.New("profile not found")
	ErrProfileExists = errors.New("a profile with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excluded ...Profile) error
		CreateProfile(ctx context.Context, prof Profile) (Profile, error)
		QueryProfiles(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Profile, error)
		GetProfile(ctx context.Context, filter GetFilter) (Profile, error)
		UpdateProfile(ctx context.Context, prof Profile) (Profile, error)
		UpdateOrCreateProfile(ctx context.Context, prof Profile) (Profile, error)
		DeleteProfilesByID(ctx context.Context, ids ...string) (int, error)
	}

	Service interface {
		CheckEmailUniqueness(email string, excluded ...Profile) error
		Create(np NewProfile) (Profile, error)
		Query(filter *QueryFilter, ordering []core.DBOrdering) ([]Profile, error)
		GetByID(id string) (Profile, error)
		GetByEmail(email string) (Profile, error)
		SetLastLogin(prof Profile) (Profile, error)
		Update(id string, up UpdateProfile) (Profile, error)
		Delete(ids ...string) error
		RequestPasswordReset(email string) error
		ResetPassword(rp ResetProfilePassword) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	initTokenGenerator(conf)
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *service) CheckEmailUniqueness(email string, excluded ...Profile) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, excluded...); err != nil {
		if err == ErrProfileExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(np NewProfile) (Profile, error) {
	now := time.Now().UTC()
	prof := Profile{
		FullName:  np.FullName,
		Email:     np.Email,
		Role:      np.Role,
		GradeID:   np.GradeID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	prof.SetActive(true)
	if err := prof.SetPassword(np.Password); err != nil {
		return Profile{}, err
	}
	return svc.repo.CreateProfile(context.Background(), prof)
}

func (svc *service) Query(filter *QueryFilter, ordering []core.DBOrdering) ([]Profile, error) {
	return svc.repo.QueryProfiles(context.Background(), filter, ordering)
}

func (svc *service) GetByID(id string) (Profile, error) {
	return svc.repo.GetProfile(context.Background(), GetFilter{ID: id})
}

func (svc *service) GetByEmail(email string) (Profile, error) {
	return svc.repo.GetProfile(context.Background(), GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) SetLastLogin(prof Profile) (Profile, error) {
	prof.LastLogin = time.Now().UTC()
	return svc.repo.UpdateProfile(context.Background(), prof)
}

func (svc *service) Update(id string, up UpdateProfile) (Profile, error) {
	prof := Profile{
		ID:        id,
		FullName:  up.FullName,
		Email:     up.Email,
		Role:      up.Role,
		GradeID:   up.GradeID,
		IsActive:  up.IsActive,
		UpdatedAt: time.Now().UTC(),
	}
	if up.Password != "" {
		if err := prof.SetPassword(up.Password); err != nil {
			return Profile{}, err
		}
	}
	return svc.repo.UpdateProfile(context.Background(), prof)
}

func (svc *service) Delete(ids ...string) error {
	_, err := svc.repo.DeleteProfilesByID(context.Background(), ids...)
	return err
}

func (svc *service) RequestPasswordReset(email string) error {
	prof, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}
	go svc.sendPasswordResetMail(prof)
	return nil
}

func (svc *service) sendPasswordResetMail(prof Profile) {
	token := makeToken(prof)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: prof.FullName, Address: prof.Email}},
		Subject:      svc.conf.AppName + " - Password Reset",
		TemplateName: "password-reset",
		TemplateData: struct {
			UID   string
			Token string
		}{EncodeUID(prof), token},
	})
}

func (svc *service) ResetPassword(rp ResetProfilePassword) error {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	prof, err := svc.GetByID(id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(errInvalidToken)
		}
		return err
	}
	if err = verifyToken(prof, rp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err = prof.SetPassword(rp.Password); err != nil {
		return err
	}
	prof.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateProfile(context.Background(), prof)
	return err
}
