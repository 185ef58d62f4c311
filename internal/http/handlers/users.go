package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/accounthub/internal/apperr"
	"github.com/geocoder89/accounthub/internal/domain/user"
	"github.com/geocoder89/accounthub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type UsersStore interface {
	FindByID(ctx context.Context, id string) (user.User, error)
	Update(ctx context.Context, id string, patch user.Patch) (user.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]user.User, error)
}

type UsersHandler struct {
	users UsersStore
	log   *slog.Logger
}

func NewUsersHandler(users UsersStore, log *slog.Logger) *UsersHandler {
	if log == nil {
		log = slog.Default()
	}

	return &UsersHandler{users: users, log: log}
}

// actor returns the authenticated identity or answers 401 when the route was
// mounted without the auth middleware.
func actor(ctx *gin.Context) (user.Identity, bool) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondErr(ctx, apperr.Unauthorized("Authentication required"))
		return user.Identity{}, false
	}
	return id, true
}

func (h *UsersHandler) GetUsers(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	users, err := h.users.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not list users", err)
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "all users retrieved", "count", len(users))

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Users retrieved successfully",
		"data":    users,
	})
}

func (h *UsersHandler) GetUser(ctx *gin.Context) {
	var p user.IDParam
	if !BindURI(ctx, &p) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.users.FindByID(cctx, p.ID)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"message": "User retrieved successfully",
		"data":    u,
	})
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	var p user.IDParam
	if !BindURI(ctx, &p) {
		return
	}

	var req user.UpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	me, ok := actor(ctx)
	if !ok {
		return
	}

	if !me.CanActOn(p.ID) {
		h.log.WarnContext(ctx.Request.Context(), "unauthorized update attempt", "actor_id", me.ID, "target_id", p.ID)
		RespondErr(ctx, apperr.Forbidden("You can only update your own profile"))
		return
	}

	if req.TouchesPrivileges() && !me.IsAdmin() {
		h.log.WarnContext(ctx.Request.Context(), "non-admin attempted to change privileges", "actor_id", me.ID)
		RespondErr(ctx, apperr.Forbidden("Only admins can change user role"))
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	updated, err := h.users.Update(cctx, p.ID, req.Patch())
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "user profile updated", "user_id", p.ID, "actor_id", me.ID)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"data":    updated,
	})
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	var p user.IDParam
	if !BindURI(ctx, &p) {
		return
	}

	me, ok := actor(ctx)
	if !ok {
		return
	}

	if !me.CanActOn(p.ID) {
		h.log.WarnContext(ctx.Request.Context(), "unauthorized delete attempt", "actor_id", me.ID, "target_id", p.ID)
		RespondErr(ctx, apperr.Forbidden("You can only delete your own account"))
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.users.Delete(cctx, p.ID); err != nil {
		RespondErr(ctx, err)
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "user deleted", "user_id", p.ID, "actor_id", me.ID)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User deleted successfully",
		"data":    gin.H{"id": p.ID},
	})
}
