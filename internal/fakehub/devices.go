package fakehub

import (
	"encoding/json"
	"net/http"
	"time"

	"hubspace/internal/domain"
)

func (s *Server) addDevice(raw json.RawMessage) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.log.WithError(err).Warn("skipping undecodable device")
		return
	}
	id, _ := doc["id"].(string)
	if id == "" {
		s.log.Warn("skipping device without id")
		return
	}
	var envelope struct {
		State struct {
			Values []domain.State `json:"values"`
		} `json:"state"`
	}
	_ = json.Unmarshal(raw, &envelope)
	delete(doc, "state")
	s.devices[id] = &device{raw: doc, states: envelope.State.Values}
	s.order = append(s.order, id)
}

func (s *Server) handleMetadevices(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("expansions") != "state" {
		http.Error(w, "expansions=state required", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	out := make([]map[string]any, 0, len(s.order))
	for _, id := range s.order {
		d := s.devices[id]
		doc := make(map[string]any, len(d.raw)+1)
		for k, v := range d.raw {
			doc[k] = v
		}
		doc["state"] = map[string]any{"metadeviceId": id, "values": d.states}
		out = append(out, doc)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("device")
	s.mu.Lock()
	d, ok := s.devices[id]
	var states []domain.State
	if ok {
		states = append(states, d.states...)
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metadeviceId": id, "values": states})
}

func (s *Server) handlePutState(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("device")
	var body struct {
		MetadeviceID string         `json:"metadeviceId"`
		Values       []domain.State `json:"values"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.MetadeviceID != id {
		http.Error(w, "metadeviceId mismatch", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	d, ok := s.devices[id]
	if ok {
		now := time.Now().UnixMilli()
		for _, v := range body.Values {
			v.LastUpdateTime = now
			replaced := false
			for i := range d.states {
				if d.states[i].Key() == v.Key() {
					d.states[i] = v
					replaced = true
				}
			}
			if !replaced {
				d.states = append(d.states, v)
			}
		}
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metadeviceId": id, "values": body.Values})
}
