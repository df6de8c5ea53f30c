package controller

import (
	"log"
	"net/http"
)

// ListCommands returns the command log, filtered by ?agent= when given.
func (c *Controller) ListCommands(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("agent")
	cmds, err := c.DB.ListCommands(r.Context(), target)
	if err != nil {
		log.Printf("list commands: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list commands")
		return
	}
	respondJSON(w, http.StatusOK, cmds)
}
