// Package services implements the timeline use cases on top of the
// repositories: registration and login, event and media management with
// per-owner authorization, and document export.
package services

import (
	"strings"

	"github.com/dmitrijs2005/timeline/internal/common"
	"github.com/dmitrijs2005/timeline/internal/server/models"
	"github.com/google/uuid"
)

// checkID rejects placeholder ids of media that were never uploaded and
// anything that cannot be a stored id.
func checkID(id, what string) error {
	if strings.HasPrefix(id, common.TempIDPrefix) {
		return common.Validation("%s id %q is temporary; save it first", what, id)
	}
	if _, err := uuid.Parse(id); err != nil {
		return common.NotFound("%s not found", what)
	}
	return nil
}

func requireIdentity(caller *models.Identity) error {
	if caller == nil || caller.ID == "" {
		return common.Unauthorized("authentication required")
	}
	return nil
}

// canRead reports whether caller may see data owned by ownerID. Lawyers
// read every timeline.
func canRead(caller *models.Identity, ownerID string) bool {
	return caller.ID == ownerID || caller.IsLawyer()
}

func canWrite(caller *models.Identity, ownerID string) bool {
	return caller.ID == ownerID
}
