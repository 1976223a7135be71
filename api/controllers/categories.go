package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/circlemart/circlemart-backend/api/middleware"
	"github.com/circlemart/circlemart-backend/api/responses"
	"github.com/circlemart/circlemart-backend/api/validators"
	"github.com/circlemart/circlemart-backend/internal/categories"
	"github.com/circlemart/circlemart-backend/pkg/config"
	"github.com/circlemart/circlemart-backend/pkg/logger"
)

type categoryCreateForm struct {
	Name        string `json:"name" validate:"required,min=2,max=80"`
	Description string `json:"description" validate:"max=500"`
}

type categoryUpdateForm struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=80"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// CategoryCreate accepts multipart/form-data: name, description, is_active, logo.
func CategoryCreate(svc categories.Service, media config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "category")
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
		input, err := categoryCreateInput(form)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := svc.Create(r.Context(), actor.UserID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

func categoryCreateInput(form *validators.Form) (categories.CreateInput, error) {
	payload := categoryCreateForm{Name: form.Text("name"), Description: form.Text("description")}
	if err := validators.ValidateStruct(&payload); err != nil {
		return categories.CreateInput{}, err
	}
	active, err := form.Bool("is_active")
	if err != nil {
		return categories.CreateInput{}, err
	}
	logo, err := form.File("logo")
	if err != nil {
		return categories.CreateInput{}, err
	}
	return categories.CreateInput{
		Name:        payload.Name,
		Description: payload.Description,
		IsActive:    active,
		Logo:        logo,
	}, nil
}

func CategoryList(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "category")
			return
		}
		filter, err := categoryFilter(r)
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

// categoryFilter only lets admins see inactive categories.
func categoryFilter(r *http.Request) (categories.ListFilter, error) {
	params, err := validators.ParsePagination(r)
	if err != nil {
		return categories.ListFilter{}, err
	}
	sort, err := validators.ParseSort(r, categories.SortFields)
	if err != nil {
		return categories.ListFilter{}, err
	}
	active, err := validators.ParseQueryBool(r, "is_active")
	if err != nil {
		return categories.ListFilter{}, err
	}
	if actor, ok := middleware.ActorFromContext(r.Context()); !ok || !actor.IsAdmin() {
		yes := true
		active = &yes
	}
	return categories.ListFilter{
		Search:   validators.ParseQueryString(r, "search", 100),
		IsActive: active,
		Sort:     sort,
		Page:     params,
	}, nil
}

func CategoryGet(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "category")
			return
		}
		id, err := validators.ParsePathUUID(r, "categoryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, category)
	}
}

func CategoryGetBySlug(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "category")
			return
		}
		category, err := svc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, category)
	}
}

// CategoryUpdate accepts the same multipart fields as create; all optional.
func CategoryUpdate(svc categories.Service, media config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "category")
			return
		}
		id, err := validators.ParsePathUUID(r, "categoryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form, err := validators.ParseForm(w, r, media.MaxUploadBytes(), 1)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := categoryUpdateForm{Name: form.String("name"), Description: form.String("description")}
		if err := validators.ValidateStruct(&payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active, err := form.Bool("is_active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		logo, err := form.File("logo")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := svc.Update(r.Context(), id, categories.UpdateInput{
			Name:        payload.Name,
			Description: payload.Description,
			IsActive:    active,
			Logo:        logo,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, category)
	}
}

func CategoryDelete(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "category")
			return
		}
		id, err := validators.ParsePathUUID(r, "categoryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "category deleted", nil)
	}
}

func CategorySetStatus(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "category")
			return
		}
		id, err := validators.ParsePathUUID(r, "categoryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active, err := decodeStatus(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.SetActive(r.Context(), id, active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, category)
	}
}

func CategoryStats(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "category")
			return
		}
		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
