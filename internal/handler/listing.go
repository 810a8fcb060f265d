package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kinder-market/internal/service"
)

// rawListingInput reads listing fields from form values.
func rawListingInput(c echo.Context) service.RawListingInput {
	return service.RawListingInput{
		Name:        c.FormValue("name"),
		Price:       c.FormValue("price"),
		CategoryID:  c.FormValue("category_id"),
		Size:        c.FormValue("size"),
		Condition:   c.FormValue("condition"),
		Description: c.FormValue("description"),
	}
}

// openUploads opens the parts of a multipart form as image uploads.  The
// returned close function releases every opened part.
func openUploads(headers []*multipart.FileHeader) ([]service.ImageUpload, func(), error) {
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	out := make([]service.ImageUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		files = append(files, f)
		out = append(out, service.ImageUpload{Filename: fh.Filename, Content: f})
	}
	return out, closeAll, nil
}

// CreateListing handles POST /v1/listings.  The body is multipart with
// the listing fields, one main_image part and up to three sub_images parts.
func (h *MarketHandler) CreateListing(c echo.Context) error {
	a, err := loadActor(c, h.Users)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	in, err := service.ParseListingInput(rawListingInput(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}

	form, err := c.MultipartForm()
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid multipart body"})
	}
	var mainHeaders, subHeaders []*multipart.FileHeader
	if form != nil {
		mainHeaders, subHeaders = form.File["main_image"], form.File["sub_images"]
	}
	if len(mainHeaders) > 1 {
		return respondError(c, h.Log, &service.ValidationError{Field: "main_image", Message: "only one main image is allowed"})
	}

	mains, closeMain, err := openUploads(mainHeaders)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	defer closeMain()
	subs, closeSubs, err := openUploads(subHeaders)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	defer closeSubs()

	var main *service.ImageUpload
	if len(mains) == 1 {
		main = &mains[0]
	}
	l, err := h.Svc.CreateListing(c.Request().Context(), a, in, main, subs)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, l)
}

// UpdateListing handles PUT /v1/listings/:id with form encoded fields.
func (h *MarketHandler) UpdateListing(c echo.Context) error {
	a, err := loadActor(c, h.Users)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	in, err := service.ParseListingInput(rawListingInput(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	l, err := h.Svc.UpdateListing(c.Request().Context(), a, id, in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, l)
}

// DeleteListing handles DELETE /v1/listings/:id.
func (h *MarketHandler) DeleteListing(c echo.Context) error {
	a, err := loadActor(c, h.Users)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if err := h.Svc.DeleteListing(c.Request().Context(), a, id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetListing handles GET /v1/listings/:id.
func (h *MarketHandler) GetListing(c echo.Context) error {
	a, err := loadActor(c, h.Users)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	d, err := h.Svc.GetListing(c.Request().Context(), a, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, d)
}

// MyListings handles GET /v1/listings/mine.
func (h *MarketHandler) MyListings(c echo.Context) error {
	a, err := loadActor(c, h.Users)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	cards, err := h.Svc.ListMyListings(c.Request().Context(), a)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": cards})
}
