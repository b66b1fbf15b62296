package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/session"
	"github.com/trezcool/shule/core/user"
)

const (
	contextTokenKey   = "sessionToken"
	contextSessionKey = "session"
	contextUserKey    = "user"
)

// sessionAuth authenticates requests with the session cookie: a signed JWT whose
// `jti` references a session.Session that must still be in the store.
type sessionAuth struct {
	cookieName string
	secretKey  []byte
	issuer     string
	ttl        time.Duration
	secure     bool
	store      session.Store
	usrSvc     *user.Service
}

func newSessionAuth(conf *core.Config, store session.Store, usrSvc *user.Service) *sessionAuth {
	return &sessionAuth{
		cookieName: conf.Server.SessionCookieName,
		secretKey:  []byte(conf.SecretKey),
		issuer:     conf.AppName,
		ttl:        conf.Server.SessionTTL,
		secure:     !(conf.Debug || conf.TestMode),
		store:      store,
		usrSvc:     usrSvc,
	}
}

// middleware returns the middlewares that reject unauthenticated requests.
// The session & user are then available in the echo.Context.
func (a *sessionAuth) middleware() []echo.MiddlewareFunc {
	jwtMw := middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    a.secretKey,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        &jwt.StandardClaims{},
		TokenLookup:   "cookie:" + a.cookieName,
	})
	return []echo.MiddlewareFunc{jwtMw, a.loadSession}
}

func (a *sessionAuth) loadSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		token, ok := ctx.Get(contextTokenKey).(*jwt.Token)
		if !ok {
			return errUnauthorized
		}
		claims, ok := token.Claims.(*jwt.StandardClaims)
		if !ok || claims.Id == "" {
			return errUnauthorized
		}
		uid, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			return errUnauthorized
		}

		reqCtx := ctx.Request().Context()
		sess, err := a.store.Get(reqCtx, claims.Id)
		if err != nil {
			if errors.Cause(err) == session.ErrNotFound {
				return errUnauthorized
			}
			return errors.Wrap(err, "getting session")
		}
		if sess.UserID != uid {
			return errUnauthorized
		}

		usr, err := a.usrSvc.GetByID(reqCtx, sess.UserID)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return errUnauthorized
			}
			return errors.Wrap(err, "finding user by ID")
		}
		if !usr.IsActive {
			return errAccountDeactivated
		}

		ctx.Set(contextSessionKey, sess)
		ctx.Set(contextUserKey, usr)
		return next(ctx)
	}
}

// login starts a new session for usr and sets its cookie.
func (a *sessionAuth) login(ctx echo.Context, usr user.User) error {
	sess := session.New(usr.ID, a.ttl)
	if err := a.store.Save(ctx.Request().Context(), sess); err != nil {
		return errors.Wrap(err, "saving session")
	}

	token, err := a.generateToken(sess)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	ctx.SetCookie(a.cookie(token, sess.ExpiresAt))
	return nil
}

// logout deletes the context session and expires its cookie.
func (a *sessionAuth) logout(ctx echo.Context) error {
	sess, ok := ctx.Get(contextSessionKey).(session.Session)
	if !ok {
		return errUnauthorized
	}
	if err := a.store.Delete(ctx.Request().Context(), sess.ID); err != nil {
		return errors.Wrap(err, "deleting session")
	}

	cookie := a.cookie("", time.Unix(0, 0))
	cookie.MaxAge = -1
	ctx.SetCookie(cookie)
	return nil
}

func (a *sessionAuth) generateToken(sess session.Session) (string, error) {
	claims := &jwt.StandardClaims{
		Id:        sess.ID,
		Subject:   strconv.FormatInt(sess.UserID, 10),
		Issuer:    a.issuer,
		IssuedAt:  sess.CreatedAt.Unix(),
		ExpiresAt: sess.ExpiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(a.secretKey)
	return ss, errors.Wrap(err, "signing token")
}

func (a *sessionAuth) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     a.cookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func getContextUser(ctx echo.Context) (user.User, error) {
	usr, ok := ctx.Get(contextUserKey).(user.User)
	if !ok {
		return user.User{}, errUnauthorized
	}
	return usr, nil
}
