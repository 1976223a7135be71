package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/circlemart/circlemart-backend/api/middleware"
	"github.com/circlemart/circlemart-backend/api/responses"
	"github.com/circlemart/circlemart-backend/api/validators"
	productsvc "github.com/circlemart/circlemart-backend/internal/products"
	"github.com/circlemart/circlemart-backend/pkg/config"
	pkgerrors "github.com/circlemart/circlemart-backend/pkg/errors"
	"github.com/circlemart/circlemart-backend/pkg/logger"
)

type createProductForm struct {
	Name        string  `json:"name" validate:"required,min=2,max=150"`
	Description string  `json:"description" validate:"max=5000"`
	Color       string  `json:"color" validate:"max=50"`
	Phone       *string `json:"phone" validate:"omitempty,e164"`
	Quantity    *int    `json:"quantity" validate:"required,gte=0"`
}

// ProductCreate accepts multipart/form-data: category_id, group_id, name,
// description, price, quantity, color, phone, expiration_date, is_active and
// one or more images.
func ProductCreate(svc productsvc.Service, media config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form, err := validators.ParseForm(w, r, media.MaxUploadBytes(), media.MaxGallerySize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := productCreateInput(form)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func productCreateInput(form *validators.Form) (productsvc.CreateInput, error) {
	quantity, err := form.Int("quantity")
	if err != nil {
		return productsvc.CreateInput{}, err
	}
	payload := createProductForm{
		Name:        form.Text("name"),
		Description: form.Text("description"),
		Color:       form.Text("color"),
		Phone:       form.String("phone"),
		Quantity:    quantity,
	}
	if payload.Phone != nil && *payload.Phone == "" {
		payload.Phone = nil
	}
	if err := validators.ValidateStruct(&payload); err != nil {
		return productsvc.CreateInput{}, err
	}

	categoryID, err := form.UUID("category_id")
	if err != nil {
		return productsvc.CreateInput{}, err
	}
	if categoryID == nil {
		return productsvc.CreateInput{}, validators.RequiredField("category_id")
	}
	groupID, err := form.UUID("group_id")
	if err != nil {
		return productsvc.CreateInput{}, err
	}
	if groupID == nil {
		return productsvc.CreateInput{}, validators.RequiredField("group_id")
	}
	price, err := form.Decimal("price")
	if err != nil {
		return productsvc.CreateInput{}, err
	}
	if price == nil {
		return productsvc.CreateInput{}, validators.RequiredField("price")
	}
	expires, err := form.Date("expiration_date")
	if err != nil {
		return productsvc.CreateInput{}, err
	}
	if expires == nil {
		return productsvc.CreateInput{}, validators.RequiredField("expiration_date")
	}
	active, err := form.Bool("is_active")
	if err != nil {
		return productsvc.CreateInput{}, err
	}
	images, err := form.Files("images")
	if err != nil {
		return productsvc.CreateInput{}, err
	}

	return productsvc.CreateInput{
		CategoryID:     *categoryID,
		GroupID:        *groupID,
		Name:           payload.Name,
		Description:    payload.Description,
		Price:          *price,
		Quantity:       *payload.Quantity,
		Color:          payload.Color,
		Phone:          payload.Phone,
		ExpirationDate: *expires,
		IsActive:       active,
		Images:         images,
	}, nil
}

// ProductList hides inactive and expired products from non-admins.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		filter, err := productFilter(r)
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

func productFilter(r *http.Request) (productsvc.ListFilter, error) {
	var filter productsvc.ListFilter
	var err error
	if filter.Page, err = validators.ParsePagination(r); err != nil {
		return filter, err
	}
	if filter.Sort, err = validators.ParseSort(r, productsvc.SortFields); err != nil {
		return filter, err
	}
	if filter.CategoryID, err = validators.ParseQueryUUID(r, "category_id"); err != nil {
		return filter, err
	}
	if filter.GroupID, err = validators.ParseQueryUUID(r, "group_id"); err != nil {
		return filter, err
	}
	if filter.MinPrice, err = validators.ParseQueryDecimal(r, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = validators.ParseQueryDecimal(r, "max_price"); err != nil {
		return filter, err
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return filter, pkgerrors.New(pkgerrors.CodeValidation, "min_price cannot exceed max_price")
	}
	inStock, err := validators.ParseQueryBool(r, "in_stock")
	if err != nil {
		return filter, err
	}
	filter.InStock = inStock != nil && *inStock
	filter.Search = validators.ParseQueryString(r, "search", 100)

	if actor, ok := middleware.ActorFromContext(r.Context()); ok && actor.IsAdmin() {
		if filter.IsActive, err = validators.ParseQueryBool(r, "is_active"); err != nil {
			return filter, err
		}
		expired, err := validators.ParseQueryBool(r, "include_expired")
		if err != nil {
			return filter, err
		}
		filter.IncludeExpired = expired != nil && *expired
		return filter, nil
	}
	yes := true
	filter.IsActive = &yes
	return filter, nil
}

func ProductGet(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		id, err := validators.ParsePathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ProductGetBySlug(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		product, err := svc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type updateProductRequest struct {
	CategoryID     *uuid.UUID       `json:"category_id"`
	Name           *string          `json:"name" validate:"omitempty,min=2,max=150"`
	Description    *string          `json:"description" validate:"omitempty,max=5000"`
	Price          *decimal.Decimal `json:"price"`
	Quantity       *int             `json:"quantity" validate:"omitempty,gte=0"`
	Color          *string          `json:"color" validate:"omitempty,max=50"`
	Phone          *string          `json:"phone" validate:"omitempty,e164"`
	ExpirationDate *string          `json:"expiration_date" validate:"omitempty,datetime=2006-01-02"`
	IsActive       *bool            `json:"is_active"`
}

func (req updateProductRequest) toInput() (productsvc.UpdateInput, error) {
	input := productsvc.UpdateInput{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Color:       req.Color,
		Phone:       req.Phone,
		IsActive:    req.IsActive,
	}
	if req.Price != nil && req.Price.IsNegative() {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"price": "must be greater than or equal to 0"})
	}
	if req.ExpirationDate != nil {
		date, err := time.Parse("2006-01-02", *req.ExpirationDate)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid expiration_date")
		}
		input.ExpirationDate = &date
	}
	return input, nil
}

func ProductUpdate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Update(r.Context(), actor, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ProductDelete(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ProductSetStatus(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active, err := decodeStatus(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.SetActive(r.Context(), actor, id, active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ProductAddImages accepts multipart/form-data: images (repeated), alt_text.
func ProductAddImages(svc productsvc.Service, media config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form, err := validators.ParseForm(w, r, media.MaxUploadBytes(), media.MaxGallerySize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		files, err := form.Files("images")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(files) == 0 {
			responses.WriteError(r.Context(), logg, w, validators.RequiredField("images"))
			return
		}
		product, err := svc.AddImages(r.Context(), actor, id, files, validators.SanitizeString(form.Text("alt_text"), 200))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func ProductSetPrimaryImage(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		imageID, err := validators.ParsePathUUID(r, "imageID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.SetPrimaryImage(r.Context(), actor, id, imageID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type reorderImagesRequest struct {
	ImageIDs []uuid.UUID `json:"image_ids" validate:"required,min=1"`
}

func ProductReorderImages(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body reorderImagesRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.ReorderImages(r.Context(), actor, id, body.ImageIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ProductDeleteImage(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		imageID, err := validators.ParsePathUUID(r, "imageID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.DeleteImage(r.Context(), actor, id, imageID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ProductStats(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
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
