package handler

import (
	"context"
	"net/http"

	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
	"go.uber.org/zap"
)

// LinkDumper lists every stored link.
type LinkDumper interface {
	Dump(ctx context.Context) ([]domain.Link, error)
}

type AdminHandler struct {
	links   LinkDumper
	sweeper ports.SweepService
	logger  *zap.Logger
}

func NewAdminHandler(links LinkDumper, sweeper ports.SweepService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{links: links, sweeper: sweeper, logger: logger}
}

// ListLinks returns stored links; deleted ones only with ?include_deleted=true.
func (h *AdminHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.links.Dump(r.Context())
	if err != nil {
		h.logger.Error("admin list links failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	includeDeleted := r.URL.Query().Get("include_deleted") == "true"
	data := make([]domain.Link, 0, len(links))
	for _, l := range links {
		if l.Deleted && !includeDeleted {
			continue
		}
		data = append(data, l)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":  data,
		"total": len(data),
	})
}

// Sweep runs one expiry sweep now.
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		h.logger.Error("admin sweep failed",
			zap.String("admin", AdminSubject(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"result": result,
			"error":  "sweep finished with errors",
		})
		return
	}

	h.logger.Info("admin sweep", zap.String("admin", AdminSubject(r.Context())), zap.Int("expired", result.Expired))
	writeJSON(w, http.StatusOK, result)
}
