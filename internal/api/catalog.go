package api

import "net/http"

type catalogResponse struct {
	Scenes []string `json:"scenes"`
	Count  int      `json:"count"`
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, _ *http.Request) {
	names := s.coord.Catalog().Names()
	if names == nil {
		names = []string{}
	}
	s.writeJSON(w, http.StatusOK, catalogResponse{Scenes: names, Count: len(names)})
}
