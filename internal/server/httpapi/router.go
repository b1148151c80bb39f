// Package httpapi exposes the reference server over REST. Routes live under
// /api/v1; every route except login and ping needs a bearer token, and all
// but the two-factor endpoints need a verified session.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/dmitrijs2005/casefile/internal/common"
	"github.com/dmitrijs2005/casefile/internal/logging"
	"github.com/dmitrijs2005/casefile/internal/server/models"
	"github.com/dmitrijs2005/casefile/internal/server/services"
)

type UserService interface {
	Authenticator
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Verify(ctx context.Context, sessionID, code string) (bool, error)
	Resend(ctx context.Context, p *services.Principal) error
	ResetPassword(ctx context.Context, userID int64, password, confirmation string) error
}

type BeneficiaryService interface {
	List(ctx context.Context, userID int64) ([]models.Beneficiary, error)
	Get(ctx context.Context, userID, id int64) (*models.Beneficiary, error)
	Create(ctx context.Context, userID int64, in *services.BeneficiaryInput) (int64, error)
	Update(ctx context.Context, userID int64, in *services.BeneficiaryInput) error
	Send(ctx context.Context, userID, id int64) (bool, error)
}

type ReferenceService interface {
	Counties(ctx context.Context) ([]models.County, error)
	Cities(ctx context.Context, countyID int64) ([]models.City, error)
	Forms(ctx context.Context) ([]models.Form, error)
	Form(ctx context.Context, id int64) (*models.Form, error)
}

type SubmissionService interface {
	SaveAnswers(ctx context.Context, batch *models.AnswerBatch) error
	SaveNote(ctx context.Context, note *models.Note, file *services.Attachment) (int64, error)
	SavePollingStation(ctx context.Context, ps *models.PollingStation) error
}

// Deps bundles what the router needs.
type Deps struct {
	Users          UserService
	Beneficiaries  BeneficiaryService
	Reference      ReferenceService
	Submissions    SubmissionService
	Metrics        *Metrics
	Logger         logging.Logger
	AllowedOrigins []string
}

type handlers struct {
	users         UserService
	beneficiaries BeneficiaryService
	reference     ReferenceService
	submissions   SubmissionService
	logger        logging.Logger
	now           func() time.Time
}

// NewRouter wires all routes, metrics and CORS into one handler.
func NewRouter(d Deps) http.Handler {
	h := &handlers{
		users:         d.Users,
		beneficiaries: d.Beneficiaries,
		reference:     d.Reference,
		submissions:   d.Submissions,
		logger:        d.Logger,
		now:           time.Now,
	}
	return newRouter(d, h)
}

func newRouter(d Deps, h *handlers) http.Handler {
	metrics := d.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	router := mux.NewRouter()
	router.Use(requestLogger(d.Logger), metrics.Middleware)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix(common.APIPrefix).Subrouter()
	api.HandleFunc("/access/authorize", h.authorize).Methods(http.MethodPost)
	api.HandleFunc("/ping", h.ping).Methods(http.MethodGet)

	session := api.NewRoute().Subrouter()
	session.Use(authenticate(d.Users, d.Logger))
	session.HandleFunc("/access/verify", h.verify).Methods(http.MethodPost)
	session.HandleFunc("/access/resend", h.resend).Methods(http.MethodPost)

	verified := api.NewRoute().Subrouter()
	verified.Use(authenticate(d.Users, d.Logger), requireVerified)
	h.registerVerified(verified)

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", common.AuthorizationHeader},
	})
	return c.Handler(router)
}

func (h *handlers) registerVerified(r *mux.Router) {
	r.HandleFunc("/user/reset", h.resetPassword).Methods(http.MethodPost)

	r.HandleFunc("/county", h.counties).Methods(http.MethodGet)
	r.HandleFunc("/county/{id:[0-9]+}/cities", h.cities).Methods(http.MethodGet)
	r.HandleFunc("/form", h.forms).Methods(http.MethodGet)
	r.HandleFunc("/form/{id:[0-9]+}", h.form).Methods(http.MethodGet)

	r.HandleFunc("/beneficiary/details", h.listBeneficiaries).Methods(http.MethodGet)
	r.HandleFunc("/beneficiary/sendFile", h.sendForm).Methods(http.MethodPost)
	r.HandleFunc("/beneficiary/{id:[0-9]+}", h.getBeneficiary).Methods(http.MethodGet)
	r.HandleFunc("/beneficiary", h.createBeneficiary).Methods(http.MethodPost)
	r.HandleFunc("/beneficiary", h.updateBeneficiary).Methods(http.MethodPut)

	r.HandleFunc("/answer", h.saveAnswers).Methods(http.MethodPost)
	r.HandleFunc("/note/upload", h.uploadNote).Methods(http.MethodPost)
	r.HandleFunc("/polling-station", h.savePollingStation).Methods(http.MethodPost)
}

// principal writes 401 when the route was registered without authenticate.
func (h *handlers) principal(w http.ResponseWriter, r *http.Request) (*services.Principal, bool) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, common.ErrUnauthorized.Error())
	}
	return p, ok
}
