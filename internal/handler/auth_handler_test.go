package handler_test

import (
	"context"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/shinyyama/campus-market/internal/handler"
	"github.com/shinyyama/campus-market/internal/model"
	"github.com/shinyyama/campus-market/internal/service"
)

var _ = Describe("AuthHandler", func() {
	var (
		e        *echo.Echo
		accounts *mockAccountService
		sessions *fakeSessions
	)

	BeforeEach(func() {
		e = newEcho()
		accounts = &mockAccountService{
			authenticateFn: func(_ context.Context, username, password string) (*model.User, error) {
				if username == "alice" && password == "correct horse" {
					return &model.User{ID: 5, Username: "alice"}, nil
				}
				return nil, service.ErrInvalidCredentials
			},
		}
		sessions = &fakeSessions{}
		h := handler.NewAuthHandler(accounts, sessions)
		e.POST("/signup", h.Signup)
		e.GET("/login", h.LoginForm)
		e.POST("/login", h.Login)
		e.POST("/account/logout", h.Logout)
	})

	Describe("Login", func() {
		It("starts a session and follows a local next", func() {
			rec := postForm(e, "/login", url.Values{"username": {"alice"}, "password": {"correct horse"}, "next": {"/chat"}})
			Expect(rec.Code).To(Equal(http.StatusSeeOther))
			Expect(rec.Header().Get(echo.HeaderLocation)).To(Equal("/chat"))
			Expect(sessions.loggedIn).To(Equal([]uint64{5}))
		})

		It("reads next from the query string", func() {
			rec := postForm(e, "/login?next=%2Flistings%2Fnew", url.Values{"username": {"alice"}, "password": {"correct horse"}})
			Expect(rec.Code).To(Equal(http.StatusSeeOther))
			Expect(rec.Header().Get(echo.HeaderLocation)).To(Equal("/listings/new"))
		})

		It("ignores off-site next values", func() {
			rec := postForm(e, "/login", url.Values{"username": {"alice"}, "password": {"correct horse"}, "next": {"//evil.example"}})
			Expect(rec.Code).To(Equal(http.StatusSeeOther))
			Expect(rec.Header().Get(echo.HeaderLocation)).To(Equal("/"))
		})

		It("reports bad credentials without naming the field", func() {
			rec := postForm(e, "/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
			Expect(body(rec)).To(ContainSubstring(`"__all__":["Please enter a correct username and password.`))
			Expect(sessions.loggedIn).To(BeEmpty())
		})

		It("requires both fields", func() {
			rec := postForm(e, "/login", url.Values{"username": {"alice"}})
			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
			Expect(body(rec)).To(ContainSubstring(`"password":["This field is required."]`))
		})

		It("drops an unsafe next from the login form", func() {
			rec := get(e, "/login?next=https%3A%2F%2Fevil.example")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(body(rec)).NotTo(ContainSubstring("evil"))
		})
	})

	It("redirects to login after signup", func() {
		var got service.SignupInput
		accounts.signupFn = func(_ context.Context, in service.SignupInput) (*model.User, error) {
			got = in
			return &model.User{ID: 6}, nil
		}
		rec := postForm(e, "/signup", url.Values{
			"username":  {"bob"},
			"email":     {"bob@example.com"},
			"password1": {"s3cret-pass"},
			"password2": {"s3cret-pass"},
		})
		Expect(rec.Code).To(Equal(http.StatusSeeOther))
		Expect(rec.Header().Get(echo.HeaderLocation)).To(Equal("/login"))
		Expect(got.Username).To(Equal("bob"))
		Expect(got.Password2).To(Equal("s3cret-pass"))
	})

	It("never echoes passwords back on signup errors", func() {
		accounts.signupFn = func(context.Context, service.SignupInput) (*model.User, error) {
			verr := &service.ValidationError{}
			verr.Add("password2", "The two password fields didn't match.")
			return nil, verr
		}
		rec := postForm(e, "/signup", url.Values{"username": {"bob"}, "password1": {"first-secret"}, "password2": {"other-secret"}})
		Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
		Expect(body(rec)).NotTo(ContainSubstring("first-secret"))
	})

	It("logs out and goes home", func() {
		rec := postForm(e, "/account/logout", nil)
		Expect(rec.Code).To(Equal(http.StatusSeeOther))
		Expect(rec.Header().Get(echo.HeaderLocation)).To(Equal("/"))
		Expect(sessions.logouts).To(Equal(1))
	})
})
