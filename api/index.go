package handler

import (
	"net/http"

	"github.com/wadjakorntonsri/limitlink/pkg/bootstrap"
	"github.com/wadjakorntonsri/limitlink/pkg/config"
)

var mux http.Handler

func init() {
	cfg := config.Load()

	// Note: On Vercel, db.sqlite is ephemeral unless using a remote SQL/Turso URL in DATABASE_URL.
	// Serverless instances do not run the background sweeper; schedule POST /api/v1/admin/sweep instead.
	app, err := bootstrap.New(cfg)
	if err != nil {
		panic(err)
	}
	mux = app.Handler
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
