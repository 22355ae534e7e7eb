package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Templates
	mux.Handle("GET /api/v1/templates", chain(http.HandlerFunc(h.ListTemplates)))
	mux.Handle("POST /api/v1/templates", chain(http.HandlerFunc(h.RegisterTemplate)))
	mux.Handle("GET /api/v1/templates/{name}/versions", chain(http.HandlerFunc(h.ListTemplateVersions)))
	mux.Handle("GET /api/v1/templates/{name}/versions/{version}", chain(http.HandlerFunc(h.GetTemplate)))
	mux.Handle("DELETE /api/v1/templates/{name}/versions/{version}", chain(http.HandlerFunc(h.DeleteTemplate)))

	// Pipelines
	mux.Handle("GET /api/v1/pipelines", chain(http.HandlerFunc(h.ListPipelines)))
	mux.Handle("POST /api/v1/pipelines", chain(http.HandlerFunc(h.CreatePipeline)))
	mux.Handle("GET /api/v1/pipelines/{id}", chain(http.HandlerFunc(h.GetPipeline)))
	mux.Handle("PUT /api/v1/pipelines/{id}", chain(http.HandlerFunc(h.UpdatePipeline)))
	mux.Handle("DELETE /api/v1/pipelines/{id}", chain(http.HandlerFunc(h.DeletePipeline)))

	// Pipeline Versions
	mux.Handle("GET /api/v1/pipelines/{id}/versions", chain(http.HandlerFunc(h.ListPipelineVersions)))
	mux.Handle("POST /api/v1/pipelines/{id}/versions", chain(http.HandlerFunc(h.CreatePipelineVersion)))
	mux.Handle("GET /api/v1/pipelines/{id}/versions/{version}", chain(http.HandlerFunc(h.GetPipelineVersion)))

	// Plans
	mux.Handle("GET /api/v1/plans", chain(http.HandlerFunc(h.ListPlans)))
	mux.Handle("POST /api/v1/pipelines/{id}/plans", chain(http.HandlerFunc(h.RequestPlan)))
	mux.Handle("GET /api/v1/plans/{id}", chain(http.HandlerFunc(h.GetPlan)))
	mux.Handle("POST /api/v1/plans/preview", chain(http.HandlerFunc(h.PreviewPlan)))

	// Triggers
	mux.Handle("GET /api/v1/triggers", chain(http.HandlerFunc(h.ListTriggers)))
	mux.Handle("POST /api/v1/pipelines/{id}/triggers", chain(http.HandlerFunc(h.CreateTrigger)))
	mux.Handle("GET /api/v1/triggers/{id}", chain(http.HandlerFunc(h.GetTrigger)))
	mux.Handle("PUT /api/v1/triggers/{id}", chain(http.HandlerFunc(h.UpdateTrigger)))
	mux.Handle("DELETE /api/v1/triggers/{id}", chain(http.HandlerFunc(h.DeleteTrigger)))
	mux.Handle("PUT /api/v1/triggers/{id}/enabled", chain(http.HandlerFunc(h.SetTriggerEnabled)))
}
