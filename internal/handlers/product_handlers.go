package handlers

import (
	"net/http"
	"strconv"

	"warehousepos/internal/common"
	"warehousepos/internal/middleware"
	"warehousepos/internal/models"
	"warehousepos/internal/services"
	"warehousepos/pkg/apperr"

	"github.com/labstack/echo/v4"
)

// ProductHandlers handles HTTP requests for products
type ProductHandlers struct {
	productService services.ProductService
}

func NewProductHandlers(productService services.ProductService) *ProductHandlers {
	return &ProductHandlers{productService: productService}
}

func (h *ProductHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	read := rbac.RequirePermission(models.PermProductsRead)
	write := rbac.RequirePermission(models.PermProductsWrite)
	g.GET("/products", h.ListProducts, read)
	g.POST("/products", h.CreateProduct, write)
	g.GET("/products/:id", h.GetProduct, read)
	g.PUT("/products/:id", h.UpdateProduct, write)
	g.DELETE("/products/:id", h.DeleteProduct, write)
	g.POST("/products/:id/images", h.UploadImage, write)
	g.DELETE("/products/:id/images/:imageId", h.DeleteImage, write)
}

// productFilter reads ?q=&category_id=&active=&limit=&offset=
func productFilter(c echo.Context) (models.ProductSearchFilter, error) {
	limit, offset, err := pagination(c)
	if err != nil {
		return models.ProductSearchFilter{}, err
	}
	categoryID, err := queryUUID(c, "category_id")
	if err != nil {
		return models.ProductSearchFilter{}, err
	}
	active, err := queryBool(c, "active")
	if err != nil {
		return models.ProductSearchFilter{}, err
	}
	return models.ProductSearchFilter{
		Query:      common.SanitizeSearchQuery(c.QueryParam("q")),
		CategoryID: categoryID,
		Active:     active,
		Limit:      limit,
		Offset:     offset,
	}, nil
}

// CreateProduct handles POST /products
func (h *ProductHandlers) CreateProduct(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	var req services.ProductRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	product, err := h.productService.Create(c.Request().Context(), tenant, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusCreated, product)
}

// GetProduct handles GET /products/:id
func (h *ProductHandlers) GetProduct(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	product, err := h.productService.GetByID(c.Request().Context(), tenant, id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

// ListProducts handles GET /products
func (h *ProductHandlers) ListProducts(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	filter, err := productFilter(c)
	if err != nil {
		return common.SendError(c, err)
	}
	products, err := h.productService.Search(c.Request().Context(), tenant, filter)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, list(products, filter.Limit, filter.Offset))
}

// UpdateProduct handles PUT /products/:id
func (h *ProductHandlers) UpdateProduct(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	var req services.ProductRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	product, err := h.productService.Update(c.Request().Context(), tenant, id, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

// DeleteProduct handles DELETE /products/:id
func (h *ProductHandlers) DeleteProduct(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	if err := h.productService.Delete(c.Request().Context(), tenant, id); err != nil {
		return common.SendError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadImage handles POST /products/:id/images (multipart field "image", optional "is_primary").
func (h *ProductHandlers) UploadImage(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	upload, closeFn, err := formImage(c, "image")
	if err != nil {
		return common.SendError(c, err)
	}
	defer closeFn()
	upload.IsPrimary, _ = strconv.ParseBool(c.FormValue("is_primary"))

	image, err := h.productService.UploadImage(c.Request().Context(), tenant, id, upload)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusCreated, image)
}

// DeleteImage handles DELETE /products/:id/images/:imageId
func (h *ProductHandlers) DeleteImage(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	imageID, err := pathUUID(c, "imageId")
	if err != nil {
		return common.SendError(c, err)
	}
	if err := h.productService.DeleteImage(c.Request().Context(), tenant, imageID); err != nil {
		return common.SendError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// formImage opens a multipart file field as an upload. The caller must invoke the returned close func.
func formImage(c echo.Context, field string) (services.ImageUpload, func(), error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return services.ImageUpload{}, nil, apperr.Wrap(apperr.CodeValidation, err, field+" file is required").
			WithDetails(map[string]string{field: "is required"})
	}
	if fh.Size > services.MaxImageSize {
		return services.ImageUpload{}, nil, apperr.New(apperr.CodeValidation, "file is larger than 5 MB").
			WithDetails(map[string]string{field: "must be at most 5 MB"})
	}
	f, err := fh.Open()
	if err != nil {
		return services.ImageUpload{}, nil, apperr.Wrap(apperr.CodeValidation, err, "cannot read uploaded file")
	}
	return services.ImageUpload{
		Reader:      f,
		Size:        fh.Size,
		ContentType: fh.Header.Get(echo.HeaderContentType),
	}, func() { _ = f.Close() }, nil
}
