package web

import (
	"github.com/gorilla/mux"
)

const uuidPattern = "[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}"

func (h *WebHandler) SetupRoutes() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/credentials", h.GetCredentials).Methods("GET")
	api.HandleFunc("/credentials", h.SaveCredentials).Methods("PUT")

	api.HandleFunc("/criteria", h.ListCriteria).Methods("GET")
	api.HandleFunc("/criteria", h.CreateCriterion).Methods("POST")
	api.HandleFunc("/criteria/{id:"+uuidPattern+"}", h.UpdateCriterion).Methods("PUT")
	api.HandleFunc("/criteria/{id:"+uuidPattern+"}", h.DeleteCriterion).Methods("DELETE")

	api.HandleFunc("/resolve", h.ResolveBuildings).Methods("POST")

	return r
}
