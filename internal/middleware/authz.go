package middleware

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/firenews/internal/apperr"
	"github.com/bilgisen/firenews/internal/logger"
	"github.com/bilgisen/firenews/internal/models"
)

// Policy is one casbin rule: role, path pattern, method (or ANY), effect.
type Policy struct {
	Role   string
	Path   string
	Method string
	Effect string
}

// DefaultPolicies grant the admin console to the Admin role only.
var DefaultPolicies = []Policy{
	{Role: string(models.RoleAdmin), Path: "/api/v1/admin/**", Method: "ANY", Effect: "allow"},
}

// NewEnforcer builds a casbin enforcer with the role model and policies.
func NewEnforcer(policies []Policy) (*casbin.Enforcer, error) {
	m := model.NewModel()
	m.AddDef("r", "r", "sub, obj, act")
	m.AddDef("p", "p", "sub, obj, act, eft")
	m.AddDef("e", "e", "some(where (p.eft == allow)) && !some(where (p.eft == deny))")
	m.AddDef("m", "m", "r.sub == p.sub && pathMatch(r.obj, p.obj) && methodMatch(r.act, p.act)")

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	e.AddFunction("pathMatch", pathMatchFunc)
	e.AddFunction("methodMatch", methodMatchFunc)

	for _, p := range policies {
		if _, err := e.AddPolicy(p.Role, p.Path, p.Method, p.Effect); err != nil {
			return nil, fmt.Errorf("add policy %s %s: %w", p.Role, p.Path, err)
		}
	}
	return e, nil
}

// Authorize checks the session's role against the enforcer.
func Authorize(e *casbin.Enforcer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := SessionFrom(c)
		if !sess.Authenticated() {
			return apperr.Unauthenticated("sign in required")
		}

		ok, err := e.Enforce(string(sess.Role), c.Path(), c.Method())
		if err != nil {
			return apperr.Internal("authorization failed", err)
		}
		if !ok {
			logger.Get().Warn().
				Str("uid", sess.UID).
				Str("role", string(sess.Role)).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Msg("Access denied")
			return apperr.Forbidden("admin access required")
		}
		return c.Next()
	}
}

// pathMatch matches "/a/*" against one segment and "/a/**" against any depth.
func pathMatch(path, pattern string) bool {
	i := strings.LastIndex(pattern, "/")
	if i == -1 {
		return false
	}
	switch pattern[i+1:] {
	case "*":
		return strings.HasPrefix(path, pattern[:i+1]) && !strings.Contains(path[i+1:], "/")
	case "**":
		return path == pattern[:i] || strings.HasPrefix(path, pattern[:i+1])
	default:
		return path == pattern
	}
}

func pathMatchFunc(args ...interface{}) (interface{}, error) {
	return pathMatch(args[0].(string), args[1].(string)), nil
}

func methodMatch(method, pattern string) bool {
	return pattern == "ANY" || method == pattern
}

func methodMatchFunc(args ...interface{}) (interface{}, error) {
	return methodMatch(args[0].(string), args[1].(string)), nil
}
