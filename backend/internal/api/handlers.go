package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"kindred/backend/internal/graph"
	apperrors "kindred/backend/pkg/errors"
)

type handlers struct {
	people People
	syncer IdentitySyncer
	auth   Authenticator
	fanout Fetcher
	logger *zap.Logger
}

type peopleRequest struct {
	People []graph.Person `json:"people" binding:"required"`
}

type searchRequest struct {
	Name string `json:"name" binding:"required"`
}

type childrenRequest struct {
	Children []graph.Person `json:"children" binding:"required"`
}

type partnersRequest struct {
	Partners []graph.Person `json:"partners" binding:"required"`
}

type fanoutRequest struct {
	URLs []string `json:"urls" binding:"required,min=1,max=100"`
}

func (h *handlers) fail(c *gin.Context, err error) {
	abortWithError(c, h.logger, err)
}

func (h *handlers) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.fail(c, apperrors.NewValidation("body", err.Error()))
		return false
	}
	return true
}

// ============================================================================
// Session
// ============================================================================

func (h *handlers) login(c *gin.Context) {
	state := c.Query("state")
	if state == "" {
		state = uuid.NewString()
	}

	u, err := h.auth.AuthorizationURL(c.Request.Context(), c.Query("redirect_uri"), state)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authorization_url": u, "state": state})
}

func (h *handlers) me(c *gin.Context) {
	person, err := h.syncer.SyncIdentity(c.Request.Context(), identityFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, person)
}

// logout holds no server-side session; it echoes the caller's identity
func (h *handlers) logout(c *gin.Context) {
	c.JSON(http.StatusOK, identityFrom(c))
}

// ============================================================================
// People
// ============================================================================

func (h *handlers) listPeople(c *gin.Context) {
	people, err := h.people.QueryAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"people": people})
}

func (h *handlers) createPeople(c *gin.Context) {
	var req peopleRequest
	if !h.bind(c, &req) {
		return
	}

	created, err := h.people.CreatePeople(c.Request.Context(), req.People)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"people": created})
}

func (h *handlers) deleteAllPeople(c *gin.Context) {
	deleted, err := h.people.DeleteAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Warn("All people deleted", zap.String("by", identityFrom(c).Subject), zap.Int("count", deleted))
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *handlers) searchPeople(c *gin.Context) {
	var req searchRequest
	if !h.bind(c, &req) {
		return
	}

	people, err := h.people.SearchByTerm(c.Request.Context(), req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"people": people})
}

func (h *handlers) getPerson(c *gin.Context) {
	person, err := h.people.GetPerson(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, person)
}

func (h *handlers) updatePerson(c *gin.Context) {
	var req graph.Person
	if !h.bind(c, &req) {
		return
	}
	if req.HasRelations() {
		h.fail(c, apperrors.NewValidation("person", "relationships are changed through the children and partners endpoints"))
		return
	}

	person, err := h.people.UpdatePerson(c.Request.Context(), c.Param("name"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, person)
}

func (h *handlers) deletePerson(c *gin.Context) {
	name := c.Param("name")
	deleted, err := h.people.DeleteByName(c.Request.Context(), name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "deleted": deleted})
}

// ============================================================================
// Relationships
// ============================================================================

func (h *handlers) getChildren(c *gin.Context) {
	view, err := h.people.GetChildren(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"children": view.Members})
}

func (h *handlers) addChildren(c *gin.Context) {
	var req childrenRequest
	if !h.bind(c, &req) {
		return
	}

	view, err := h.people.AddChildren(c.Request.Context(), c.Param("name"), req.Children)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"children": view.Members})
}

func (h *handlers) getParents(c *gin.Context) {
	view, err := h.people.GetParents(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"parents": view.Members})
}

func (h *handlers) getPartners(c *gin.Context) {
	view, err := h.people.GetPartners(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"partners": view.Members})
}

func (h *handlers) addPartners(c *gin.Context) {
	var req partnersRequest
	if !h.bind(c, &req) {
		return
	}

	view, err := h.people.AddPartners(c.Request.Context(), c.Param("name"), req.Partners)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"partners": view.Members})
}

// ============================================================================
// Fan-out
// ============================================================================

func (h *handlers) gather(c *gin.Context) {
	var req fanoutRequest
	if !h.bind(c, &req) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": h.fanout.Gather(c.Request.Context(), req.URLs)})
}
