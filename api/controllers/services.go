package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/circlemart/circlemart-backend/api/middleware"
	"github.com/circlemart/circlemart-backend/api/responses"
	"github.com/circlemart/circlemart-backend/api/validators"
	"github.com/circlemart/circlemart-backend/internal/services"
	"github.com/circlemart/circlemart-backend/pkg/config"
	"github.com/circlemart/circlemart-backend/pkg/logger"
)

type serviceCreateForm struct {
	Title       string `json:"title" validate:"required,min=2,max=120"`
	Description string `json:"description" validate:"max=2000"`
}

type serviceUpdateForm struct {
	Title       *string `json:"title" validate:"omitempty,min=2,max=120"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// ServiceCreate accepts multipart/form-data: title, description, is_active,
// is_default, image.
func ServiceCreate(svc services.Service, media config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "service")
			return
		}
		form, err := validators.ParseForm(w, r, media.MaxUploadBytes(), 1)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload := serviceCreateForm{Title: form.Text("title"), Description: form.Text("description")}
		if err := validators.ValidateStruct(&payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active, err := form.Bool("is_active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		isDefault, err := form.Bool("is_default")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		image, err := form.File("image")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		service, err := svc.Create(r.Context(), services.CreateInput{
			Title:       payload.Title,
			Description: payload.Description,
			IsActive:    active,
			IsDefault:   isDefault != nil && *isDefault,
			Image:       image,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, service)
	}
}

func ServiceList(svc services.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "service")
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sort, err := validators.ParseSort(r, services.SortFields)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active, err := validators.ParseQueryBool(r, "is_active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor, ok := middleware.ActorFromContext(r.Context()); !ok || !actor.IsAdmin() {
			yes := true
			active = &yes
		}

		page, err := svc.List(r.Context(), services.ListFilter{
			Search:   validators.ParseQueryString(r, "search", 100),
			IsActive: active,
			Sort:     sort,
			Page:     params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, page.Items, page.Meta)
	}
}

func ServiceGet(svc services.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "service")
			return
		}
		id, err := validators.ParsePathUUID(r, "serviceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		service, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, service)
	}
}

func ServiceGetBySlug(svc services.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "service")
			return
		}
		service, err := svc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, service)
	}
}

func ServiceUpdate(svc services.Service, media config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "service")
			return
		}
		id, err := validators.ParsePathUUID(r, "serviceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form, err := validators.ParseForm(w, r, media.MaxUploadBytes(), 1)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload := serviceUpdateForm{Title: form.String("title"), Description: form.String("description")}
		if err := validators.ValidateStruct(&payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active, err := form.Bool("is_active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		isDefault, err := form.Bool("is_default")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		image, err := form.File("image")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		service, err := svc.Update(r.Context(), id, services.UpdateInput{
			Title:       payload.Title,
			Description: payload.Description,
			IsActive:    active,
			IsDefault:   isDefault,
			Image:       image,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, service)
	}
}

func ServiceDelete(svc services.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "service")
			return
		}
		id, err := validators.ParsePathUUID(r, "serviceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "service deleted", nil)
	}
}

func ServiceSetStatus(svc services.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "service")
			return
		}
		id, err := validators.ParsePathUUID(r, "serviceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active, err := decodeStatus(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		service, err := svc.SetActive(r.Context(), id, active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, service)
	}
}

func ServiceStats(svc services.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "service")
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
