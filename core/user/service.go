package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

const passwordResetTemplate = "password_reset"

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUserByID(ctx context.Context, id int64, exec ...core.DBExecutor) (User, error)
		GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		tokenGen *tokenGenerator
	}

	// PasswordResetData is passed to the password reset email templates.
	PasswordResetData struct {
		Name  string
		UID   string
		Token string
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &Service{
		repo:     repo,
		mailSvc:  mailSvc,
		tokenGen: newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeout),
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (svc *Service) checkUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

// Create creates an active User; nu is expected to be validated.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := svc.checkUniqueness(ctx, nu.Email); err != nil {
		return User{}, err
	}

	tstamp := now()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		IsActive:  true,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	return usr, errors.Wrap(err, "creating user")
}

func (svc *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// Authenticate returns the User with the given credentials.
// ErrNotFound is returned if the email is unknown or the password does not match.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrNotFound
	}
	return usr, nil
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = null.TimeFrom(now())
	usr, err := svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting last login")
}

// SetPassword checks pwd against the password policy and saves it.
func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := CheckPassword(pwd, usr.Name, usr.Email); err != nil {
		return User{}, err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = now()
	usr, err := svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

// SetActive activates or deactivates usr.
func (svc *Service) SetActive(ctx context.Context, usr User, active bool) (User, error) {
	usr.IsActive = active
	usr.UpdatedAt = now()
	usr, err := svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

// RequestPasswordReset emails a password reset link to the active User with the given email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *Service) sendPasswordResetMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: passwordResetTemplate,
		TemplateData: PasswordResetData{
			Name:  usr.Name,
			UID:   EncodeUID(usr),
			Token: svc.tokenGen.makeToken(usr),
		},
	})
}

// ResetPassword sets a new password for the User identified by data.UID if data.Token is valid.
func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) (User, error) {
	invalidErr := core.NewValidationError(nil, core.FieldError{Field: "token", Error: "invalid or expired token"})

	id, err := decodeUID(data.UID)
	if err != nil {
		return User{}, invalidErr
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, invalidErr
		}
		return User{}, errors.Wrap(err, "finding user by ID")
	}
	if err = svc.tokenGen.verifyToken(usr, data.Token); err != nil {
		return User{}, invalidErr
	}
	return svc.SetPassword(ctx, usr, data.Password)
}
