package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/convoguide/internal/domain"
	"github.com/ashureev/convoguide/internal/identity"
)

const maxTokenRequestBytes = 4 << 10

type tokenRequest struct {
	RoomName        string `json:"roomName"`
	ParticipantName string `json:"participantName"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ServerURL string `json:"serverUrl"`
	RoomName  string `json:"roomName"`
}

type roomResponse struct {
	Room         string        `json:"room"`
	Mode         domain.Mode   `json:"mode"`
	Topic        string        `json:"topic"`
	Moods        []domain.Mood `json:"moods"`
	Context      string        `json:"context"`
	Participants []string      `json:"participants"`
}

// IssueToken mints a join token for a room. The room is generated when the
// request leaves it out.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	body := http.MaxBytesReader(w, r.Body, maxTokenRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room := strings.TrimSpace(req.RoomName)
	if room == "" {
		room = identity.NewRoomName(h.now())
	}
	participant := strings.TrimSpace(req.ParticipantName)
	if participant == "" {
		participant = identity.NewParticipantName()
	}
	if !identity.ValidRoom(room) {
		Error(w, http.StatusBadRequest, "invalid room name")
		return
	}
	if !identity.ValidParticipant(participant) {
		Error(w, http.StatusBadRequest, "invalid participant name")
		return
	}

	token, err := identity.IssueToken(h.tokenSecret, room, participant, h.tokenTTL, h.now())
	if err != nil {
		h.logger.Error("Failed to issue token", "room", room, "error", err)
		Error(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	h.logger.Info("Join token issued", "room", room, "participant", participant)
	JSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ServerURL: h.serverURL(r),
		RoomName:  room,
	})
}

// GetRoom returns the conversation state of a room.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	if !identity.ValidRoom(room) {
		Error(w, http.StatusBadRequest, "invalid room name")
		return
	}
	st, ok := h.store.Get(room)
	if !ok {
		Error(w, http.StatusNotFound, "room not found")
		return
	}

	snap := st.Snapshot()
	JSON(w, http.StatusOK, roomResponse{
		Room:         room,
		Mode:         snap.Mode,
		Topic:        snap.Topic,
		Moods:        snap.MoodHistory,
		Context:      snap.Context,
		Participants: h.worker.Participants(room),
	})
}

// DeleteRoom clears a room's state and disconnects everyone in it.
func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	if !identity.ValidRoom(room) {
		Error(w, http.StatusBadRequest, "invalid room name")
		return
	}

	h.worker.CloseRoom(room)
	h.hub.CloseRoom(room)
	h.store.Clear(room)

	h.logger.Info("Room cleared", "room", room)
	w.WriteHeader(http.StatusNoContent)
}

// serverURL is the WebSocket base URL clients dial with their token.
func (h *Handler) serverURL(r *http.Request) string {
	if h.publicURL != "" {
		if u, err := url.Parse(h.publicURL); err == nil && u.Host != "" {
			switch u.Scheme {
			case "https":
				u.Scheme = "wss"
			case "http":
				u.Scheme = "ws"
			}
			return strings.TrimSuffix(u.String(), "/")
		}
	}

	scheme := "ws"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "wss"
	}
	return scheme + "://" + r.Host
}
