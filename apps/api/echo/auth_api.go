package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/session"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/routes"
	"github.com/trezcool/shule/services/metrics"
)

const (
	passwordResetRequestedMsg = "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."
	passwordResetMsg = "Your password has been reset. Please log in with your new password."
)

type authApi struct {
	auth     *sessionAuth
	svc      *user.Service
	sessions session.Store
	metrics  *metrics.Metrics
	logger   core.Logger
	validate *validator.Validate
}

func registerAuthAPI(s *Server, auth *sessionAuth) {
	api := authApi{
		auth:     auth,
		svc:      s.deps.UserSvc,
		sessions: s.deps.Sessions,
		metrics:  s.deps.Metrics,
		logger:   s.deps.Logger,
		validate: s.deps.Validate,
	}
	authed := auth.middleware()

	// TODO: rate limit login & password reset requests
	s.handle(routes.NameLogin, api.login)
	s.handle(routes.NameForgotPassword, api.forgotPassword)
	s.handle(routes.NameResetPassword, api.resetPassword)

	s.handle(routes.NameLogout, api.logout, authed...)
	s.handle(routes.NameMe, api.me, authed...)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data loginRequest
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to loginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	usr, err := api.svc.Authenticate(reqCtx, data.Email, data.Password)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			api.metrics.Login(metrics.LoginFailed)
			return errInvalidCredentials
		}
		return errors.Wrap(err, "authenticating")
	}
	if !usr.IsActive {
		api.metrics.Login(metrics.LoginDeactivated)
		return errAccountDeactivated
	}

	if usr, err = api.svc.SetLastLogin(reqCtx, usr); err != nil {
		return errors.Wrap(err, "setting lastLogin")
	}
	if err = api.auth.login(ctx, usr); err != nil {
		return err
	}
	api.metrics.Login(metrics.LoginSuccess)
	return ctx.JSON(http.StatusOK, userResponse{User: usr})
}

func (api *authApi) logout(ctx echo.Context) error {
	if err := api.auth.logout(ctx); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, userResponse{User: usr})
}

func (api *authApi) forgotPassword(ctx echo.Context) error {
	var data forgotPasswordRequest
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to forgotPasswordRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if err != nil && errors.Cause(err) != user.ErrNotFound {
		// the response does not tell whether the email is known
		err = errors.Wrap(err, "requesting password reset")
		api.logger.Error(fmt.Sprintf("%v", err), err)
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: passwordResetRequestedMsg})
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	usr, err := api.svc.ResetPassword(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "resetting password")
	}
	// log out everywhere
	if err = api.sessions.DeleteUserSessions(reqCtx, usr.ID); err != nil {
		return errors.Wrap(err, "deleting user sessions")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: passwordResetMsg})
}

type (
	loginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	forgotPasswordRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	userResponse struct {
		User user.User `json:"user"`
	}

	messageResponse struct {
		Message string `json:"message"`
	}
)

func (lr *loginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (fr *forgotPasswordRequest) Validate(validate *validator.Validate) error {
	fr.Email = core.CleanString(fr.Email, true /* lower */)
	return validate.Struct(fr)
}
