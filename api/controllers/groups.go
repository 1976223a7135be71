package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/circlemart/circlemart-backend/api/middleware"
	"github.com/circlemart/circlemart-backend/api/responses"
	"github.com/circlemart/circlemart-backend/api/validators"
	"github.com/circlemart/circlemart-backend/internal/groups"
	"github.com/circlemart/circlemart-backend/pkg/config"
	"github.com/circlemart/circlemart-backend/pkg/enums"
	"github.com/circlemart/circlemart-backend/pkg/logger"
)

type groupCreateForm struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=2000"`
}

type groupUpdateForm struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// GroupCreate accepts multipart/form-data: service_id, name, description,
// is_private, admin_id, image. Groups created by non-admins start pending.
func GroupCreate(svc groups.Service, media config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "group")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form, err := validators.ParseForm(w, r, media.MaxUploadBytes(), 1)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := groupCreateInput(form)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		group, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, group)
	}
}

func groupCreateInput(form *validators.Form) (groups.CreateInput, error) {
	payload := groupCreateForm{Name: form.Text("name"), Description: form.Text("description")}
	if err := validators.ValidateStruct(&payload); err != nil {
		return groups.CreateInput{}, err
	}
	serviceID, err := form.UUID("service_id")
	if err != nil {
		return groups.CreateInput{}, err
	}
	if serviceID == nil {
		return groups.CreateInput{}, validators.RequiredField("service_id")
	}
	private, err := form.Bool("is_private")
	if err != nil {
		return groups.CreateInput{}, err
	}
	adminID, err := form.UUID("admin_id")
	if err != nil {
		return groups.CreateInput{}, err
	}
	image, err := form.File("image")
	if err != nil {
		return groups.CreateInput{}, err
	}
	return groups.CreateInput{
		ServiceID:   *serviceID,
		Name:        payload.Name,
		Description: payload.Description,
		IsPrivate:   private != nil && *private,
		AdminID:     adminID,
		Image:       image,
	}, nil
}

// GroupList shows approved, active groups to everyone but platform admins.
func GroupList(svc groups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "group")
			return
		}
		filter, err := groupFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, page.Items, page.Meta)
	}
}

func groupFilter(r *http.Request) (groups.ListFilter, error) {
	params, err := validators.ParsePagination(r)
	if err != nil {
		return groups.ListFilter{}, err
	}
	sort, err := validators.ParseSort(r, groups.SortFields)
	if err != nil {
		return groups.ListFilter{}, err
	}
	serviceID, err := validators.ParseQueryUUID(r, "service_id")
	if err != nil {
		return groups.ListFilter{}, err
	}
	private, err := validators.ParseQueryBool(r, "is_private")
	if err != nil {
		return groups.ListFilter{}, err
	}
	active, err := validators.ParseQueryBool(r, "is_active")
	if err != nil {
		return groups.ListFilter{}, err
	}
	status, err := validators.ParseQueryEnum(r, "approval_status", enums.ParseApprovalStatus)
	if err != nil {
		return groups.ListFilter{}, err
	}
	if actor, ok := middleware.ActorFromContext(r.Context()); !ok || !actor.IsAdmin() {
		yes := true
		approved := enums.ApprovalStatusApproved
		active, status = &yes, &approved
	}
	return groups.ListFilter{
		ServiceID:      serviceID,
		ApprovalStatus: status,
		IsActive:       active,
		IsPrivate:      private,
		Search:         validators.ParseQueryString(r, "search", 100),
		Sort:           sort,
		Page:           params,
	}, nil
}

func GroupGet(svc groups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "group")
			return
		}
		id, err := validators.ParsePathUUID(r, "groupID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		group, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, group)
	}
}

func GroupGetBySlug(svc groups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "group")
			return
		}
		group, err := svc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, group)
	}
}

func GroupUpdate(svc groups.Service, media config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "group")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "groupID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form, err := validators.ParseForm(w, r, media.MaxUploadBytes(), 1)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload := groupUpdateForm{Name: form.String("name"), Description: form.String("description")}
		if err := validators.ValidateStruct(&payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		private, err := form.Bool("is_private")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		adminID, err := form.UUID("admin_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		image, err := form.File("image")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		group, err := svc.Update(r.Context(), actor, id, groups.UpdateInput{
			Name:        payload.Name,
			Description: payload.Description,
			IsPrivate:   private,
			AdminID:     adminID,
			Image:       image,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, group)
	}
}

func GroupDelete(svc groups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "group")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "groupID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "group deleted", nil)
	}
}

func GroupSetStatus(svc groups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "group")
			return
		}
		id, err := validators.ParsePathUUID(r, "groupID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active, err := decodeStatus(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		group, err := svc.SetActive(r.Context(), id, active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, group)
	}
}

// GroupApprove is the platform admin moderation decision on a pending group.
func GroupApprove(svc groups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "group")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "groupID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		group, err := svc.Approve(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "group approved", group)
	}
}

func GroupReject(svc groups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "group")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "groupID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body rejectRequest
		if err := decodeOptionalJSON(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		group, err := svc.Reject(r.Context(), actor, id, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "group rejected", group)
	}
}

// GroupJoin answers 201 with the membership; private groups leave it pending.
func GroupJoin(svc groups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "group")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "groupID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Join(r.Context(), actor.UserID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		message := "joined group"
		if result.Membership.Status == enums.MembershipStatusPending {
			message = "join request sent, waiting for the group admin"
		}
		responses.WriteMessage(w, http.StatusCreated, message, result)
	}
}

func GroupLeave(svc groups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "group")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "groupID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Leave(r.Context(), actor.UserID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "left group", nil)
	}
}

func GroupMembers(svc groups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "group")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "groupID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := validators.ParseQueryEnum(r, "status", enums.ParseMembershipStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.Members(r.Context(), actor, id, groups.MemberFilter{Status: status, Page: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, page.Items, page.Meta)
	}
}

// GroupDecideRequest approves or rejects a pending join request.
func GroupDecideRequest(svc groups.Service, approve bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "group")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		groupID, err := validators.ParsePathUUID(r, "groupID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := validators.ParsePathUUID(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		decide, message := svc.RejectRequest, "join request rejected"
		if approve {
			decide, message = svc.ApproveRequest, "join request approved"
		}
		member, err := decide(r.Context(), actor, groupID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, message, member)
	}
}

func GroupStats(svc groups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "group")
			return
		}
		serviceID, err := validators.ParseQueryUUID(r, "service_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stats, err := svc.Stats(r.Context(), serviceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
