package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/circlemart/circlemart-backend/api/middleware"
	"github.com/circlemart/circlemart-backend/api/responses"
	"github.com/circlemart/circlemart-backend/api/validators"
	"github.com/circlemart/circlemart-backend/internal/blogs"
	"github.com/circlemart/circlemart-backend/pkg/config"
	"github.com/circlemart/circlemart-backend/pkg/logger"
)

type blogCreateForm struct {
	Title   string `json:"title" validate:"required,min=3,max=200"`
	Excerpt string `json:"excerpt" validate:"max=500"`
	Content string `json:"content" validate:"required,min=10"`
}

type blogUpdateForm struct {
	Title   *string `json:"title" validate:"omitempty,min=3,max=200"`
	Excerpt *string `json:"excerpt" validate:"omitempty,max=500"`
	Content *string `json:"content" validate:"omitempty,min=10"`
}

// BlogCreate accepts multipart/form-data: title, excerpt, content, is_active,
// thumbnail and gallery (repeated, at least one).
func BlogCreate(svc blogs.Service, media config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form, err := validators.ParseForm(w, r, media.MaxUploadBytes(), media.MaxGallerySize+1)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload := blogCreateForm{Title: form.Text("title"), Excerpt: form.Text("excerpt"), Content: form.Text("content")}
		if err := validators.ValidateStruct(&payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active, err := form.Bool("is_active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		thumbnail, err := form.File("thumbnail")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		gallery, err := form.Files("gallery")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		blog, err := svc.Create(r.Context(), actor, blogs.CreateInput{
			Title:     payload.Title,
			Excerpt:   payload.Excerpt,
			Content:   payload.Content,
			IsActive:  active,
			Thumbnail: thumbnail,
			Gallery:   gallery,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, blog)
	}
}

// BlogList only returns published posts to non-admins.
func BlogList(svc blogs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog")
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sort, err := validators.ParseSort(r, blogs.SortFields)
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
		page, err := svc.List(r.Context(), blogs.ListFilter{
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

func BlogGet(svc blogs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog")
			return
		}
		id, err := validators.ParsePathUUID(r, "blogID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		blog, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, blog)
	}
}

// BlogView returns a published post by slug and counts the view.
func BlogView(svc blogs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog")
			return
		}
		blog, err := svc.View(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, blog)
	}
}

func BlogUpdate(svc blogs.Service, media config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "blogID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form, err := validators.ParseForm(w, r, media.MaxUploadBytes(), 1)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload := blogUpdateForm{Title: form.String("title"), Excerpt: form.String("excerpt"), Content: form.String("content")}
		if err := validators.ValidateStruct(&payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active, err := form.Bool("is_active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		thumbnail, err := form.File("thumbnail")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		blog, err := svc.Update(r.Context(), actor, id, blogs.UpdateInput{
			Title:     payload.Title,
			Excerpt:   payload.Excerpt,
			Content:   payload.Content,
			IsActive:  active,
			Thumbnail: thumbnail,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, blog)
	}
}

func BlogDelete(svc blogs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "blogID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "blog deleted", nil)
	}
}

func BlogSetStatus(svc blogs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "blogID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active, err := decodeStatus(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		blog, err := svc.SetActive(r.Context(), actor, id, active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, blog)
	}
}

func BlogAddGallery(svc blogs.Service, media config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "blogID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form, err := validators.ParseForm(w, r, media.MaxUploadBytes(), media.MaxGallerySize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		files, err := form.Files("gallery")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(files) == 0 {
			responses.WriteError(r.Context(), logg, w, validators.RequiredField("gallery"))
			return
		}
		blog, err := svc.AddGalleryImages(r.Context(), actor, id, files)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, blog)
	}
}

func BlogDeleteGalleryImage(svc blogs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "blogID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		imageID, err := validators.ParsePathUUID(r, "imageID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		blog, err := svc.DeleteGalleryImage(r.Context(), actor, id, imageID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, blog)
	}
}

func BlogLike(svc blogs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog")
			return
		}
		id, err := validators.ParsePathUUID(r, "blogID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		blog, err := svc.Like(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": blog.ID, "likes": blog.Likes})
	}
}
