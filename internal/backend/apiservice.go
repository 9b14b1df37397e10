package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/alt-ctrl-dev/imagewise/internal/backend/commands"
	"github.com/alt-ctrl-dev/imagewise/internal/backend/commandstructure"
	"github.com/alt-ctrl-dev/imagewise/internal/core"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const imageFormField = "image"

type APIService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

type resizeQuery struct {
	MaxHeight int `validate:"gt=0"`
}

func (q *resizeQuery) bind(ctx echo.Context) error {
	return echo.QueryParamsBinder(ctx).MustInt("max_height", &q.MaxHeight).BindError()
}

type minifyQuery struct {
	Level int `validate:"gte=0,lte=255"`
	Strip bool
}

func (q *minifyQuery) bind(ctx echo.Context) error {
	return echo.QueryParamsBinder(ctx).
		Int("level", &q.Level).
		Bool("strip", &q.Strip).
		BindError()
}

type webpQuery struct {
	Quality float64 `validate:"gte=0,lte=100"`
}

func (q *webpQuery) bind(ctx echo.Context) error {
	return echo.QueryParamsBinder(ctx).Float64("quality", &q.Quality).BindError()
}

// queryParams is implemented by the per-operation query structs.
type queryParams interface {
	bind(ctx echo.Context) error
}

// ErrorResponse is the JSON body returned for failed operations.
type ErrorResponse struct {
	Status  commandstructure.Status    `json:"status"`
	Kind    commandstructure.ErrorKind `json:"kind,omitempty"`
	Message string                     `json:"message"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		coreService: coreService,
		config:      config,
	}
}

func (service *APIService) SetRoutes(e *echo.Echo) {
	// Set probe route
	e.GET("/probe", func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "ok")
	})

	api := e.Group("/api/operations", middleware.BodyLimit(strconv.FormatInt(service.config.MaxUploadBytes, 10)+"B"))
	api.GET("", service.listOperationsHandler)
	api.POST("/"+commands.ResizeCommandName, service.resizeHandler)
	api.POST("/"+commands.MinifyCommandName, service.minifyHandler)
	api.POST("/"+commands.WebpConverterCommandName, service.webpHandler)
}

func (service *APIService) listOperationsHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, service.coreService.Operations())
}

func (service *APIService) resizeHandler(ctx echo.Context) error {
	var query resizeQuery
	if err := bindQuery(ctx, &query); err != nil {
		return err
	}
	return service.runOperation(ctx, commands.ResizeCommandName, map[string]any{
		"max_height": query.MaxHeight,
	})
}

func (service *APIService) minifyHandler(ctx echo.Context) error {
	var query minifyQuery
	if err := bindQuery(ctx, &query); err != nil {
		return err
	}
	// Absent parameters fall back to the configured operation defaults.
	params := map[string]any{}
	if ctx.QueryParams().Has("level") {
		params["level"] = query.Level
	}
	if ctx.QueryParams().Has("strip") {
		params["strip"] = query.Strip
	}
	return service.runOperation(ctx, commands.MinifyCommandName, params)
}

func (service *APIService) webpHandler(ctx echo.Context) error {
	var query webpQuery
	if err := bindQuery(ctx, &query); err != nil {
		return err
	}
	params := map[string]any{}
	if ctx.QueryParams().Has("quality") {
		params["quality"] = query.Quality
	}
	return service.runOperation(ctx, commands.WebpConverterCommandName, params)
}

// bindQuery binds and validates query parameters. The request body is the
// image and is not bound.
func bindQuery(ctx echo.Context, query queryParams) error {
	if err := query.bind(ctx); err != nil {
		var bindErr *echo.BindingError
		if errors.As(err, &bindErr) {
			return echo.NewHTTPError(http.StatusBadRequest, bindErr.Error())
		}
		return err
	}
	return ctx.Validate(query)
}

func (service *APIService) runOperation(ctx echo.Context, name string, params map[string]any) error {
	requestID := ctx.Response().Header().Get(echo.HeaderXRequestID)

	image, err := readImage(ctx)
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		slog.Error("failed to read image from request",
			"status", http.StatusBadRequest, "error", err, "request_id", requestID)
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read image from request")
	}
	if len(image) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "request contains no image")
	}

	result, err := service.coreService.Run(ctx.Request().Context(), name, image, params)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, core.ErrDispatcherClosed) {
			status = http.StatusServiceUnavailable
		}
		slog.Error("operation not completed",
			"command_name", name, "status", status, "error", err, "request_id", requestID)
		return echo.NewHTTPError(status, err.Error())
	}

	if !result.OK() {
		slog.Info("operation failed",
			"command_name", name, "kind", result.Kind, "message", result.Message, "request_id", requestID)
		return ctx.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Status:  result.Status,
			Kind:    result.Kind,
			Message: result.Message,
		})
	}

	return ctx.Blob(http.StatusOK, http.DetectContentType(result.Image), result.Image)
}

// readImage returns the "image" field of a multipart form, or the raw body.
func readImage(ctx echo.Context) ([]byte, error) {
	contentType := ctx.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		return io.ReadAll(ctx.Request().Body)
	}

	file, err := ctx.FormFile(imageFormField)
	if err != nil {
		return nil, err
	}
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()
	return io.ReadAll(src)
}
