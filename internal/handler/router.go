package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"pdf-workbench/internal/domain"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(operations *OperationHandler, artifacts *ArtifactHandler) http.Handler {
	router := mux.NewRouter()

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"pdf-workbench"}`))
	}).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()

	// One POST route per operation kind
	for kind := range domain.KnownOperations {
		api.HandleFunc("/"+string(kind), operations.Handle(kind)).Methods("POST")
	}

	// Artifact routes
	api.HandleFunc("/download/{name}", artifacts.Download).Methods("GET")
	api.HandleFunc("/create-zip", artifacts.CreateZip).Methods("POST")
	api.HandleFunc("/cleanup", artifacts.Cleanup).Methods("DELETE")

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:4173",
			"http://localhost:3000",
		},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
		},
		ExposedHeaders: []string{
			"Content-Disposition",
		},
		MaxAge: 300,
	})

	return c.Handler(router)
}
