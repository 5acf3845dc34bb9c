package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"device-allocation-backend/internal/auth"
	"device-allocation-backend/internal/report"
	"device-allocation-backend/internal/store"
)

// Notifier is told about machines that went back into stock.
type Notifier interface {
	Dispatch(machineID uuid.UUID) bool
}

// Options wires the dependencies of the API handlers.
type Options struct {
	Store       store.Store
	Reports     *report.Service
	Issuer      *auth.Issuer
	Directory   auth.Directory
	Notifier    Notifier // nil disables back-in-stock notifications
	WebPush     *webpush.Options
	Log         *zap.Logger
	Development bool
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	reports   *report.Service
	issuer    *auth.Issuer
	directory auth.Directory
	notifier  Notifier
	webpush   *webpush.Options
	log       *zap.Logger
	dev       bool
}

// NewHandler creates a new API handler.
func NewHandler(opts Options) *Handler {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	reports := opts.Reports
	if reports == nil && opts.Store != nil {
		reports = report.NewService(opts.Store)
	}
	return &Handler{
		store:     opts.Store,
		reports:   reports,
		issuer:    opts.Issuer,
		directory: opts.Directory,
		notifier:  opts.Notifier,
		webpush:   opts.WebPush,
		log:       log,
		dev:       opts.Development,
	}
}

// backInStock notifies watchers of a machine that became AVAILABLE.
func (h *Handler) backInStock(machineID uuid.UUID) {
	if h.notifier == nil {
		return
	}
	h.notifier.Dispatch(machineID)
}
