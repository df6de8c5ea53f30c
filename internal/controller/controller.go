package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"example.com/npc-behaviour/internal/db"
	mqttc "example.com/npc-behaviour/internal/mqtt"
)

// Controller holds shared dependencies for HTTP handlers. MQTT may be nil,
// in which case commands are only logged.
type Controller struct {
	DB   *db.DB
	MQTT *mqttc.Client
}

func New(dbConn *db.DB, mqttClient *mqttc.Client) *Controller {
	return &Controller{DB: dbConn, MQTT: mqttClient}
}

func (c *Controller) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// pathTail returns what follows prefix with an optional suffix removed.
func pathTail(path, prefix, suffix string) (string, error) {
	if !strings.HasPrefix(path, prefix) {
		return "", fmt.Errorf("invalid path")
	}
	tail := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if suffix != "" {
		if !strings.HasSuffix(tail, suffix) {
			return "", fmt.Errorf("invalid path")
		}
		tail = strings.Trim(strings.TrimSuffix(tail, suffix), "/")
	}
	if tail == "" || strings.Contains(tail, "/") {
		return "", fmt.Errorf("missing id")
	}
	return tail, nil
}

func parseIDFromPath(path, prefix string) (int64, error) {
	return parseIDWithSuffix(path, prefix, "")
}

func parseIDWithSuffix(path, prefix, suffix string) (int64, error) {
	tail, err := pathTail(path, prefix, suffix)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(tail, 10, 64)
}
