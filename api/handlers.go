package api

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/go-faster/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/krau/tgkw/engine"
	"github.com/krau/tgkw/service"
	"github.com/krau/tgkw/types"
	"github.com/krau/tgkw/utils/tgutil"
)

const noResultsMessage = "No messages found with the specified keyword"

// Search 搜索频道并生成 Word 报告
//
//	@Summary		Search a channel for a keyword
//	@Description	Scans the most recent messages of a public channel, keeps the ones containing the keyword (case-insensitive) and writes them to a .docx report
//	@Tags			Search
//	@Accept			json
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Param			request	body		SearchRequest	true	"Search request"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	ErrorResponse	"Invalid input or Telegram error"
//	@Failure		401		{object}	ErrorResponse	"Missing or invalid API key"
//	@Failure		404		{object}	ErrorResponse	"No matching messages"
//	@Failure		500		{object}	ErrorResponse	"Internal error"
//	@Router			/search [post]
func (s *Server) Search(c *fiber.Ctx) error {
	request := new(SearchRequest)
	if err := c.BodyParser(request); err != nil {
		return &fiber.Error{Code: fiber.StatusBadRequest, Message: "Invalid request body"}
	}
	if err := validate.StructCtx(c.UserContext(), request); err != nil {
		return &fiber.Error{Code: fiber.StatusBadRequest, Message: "Validation failed: " + err.Error()}
	}
	limit := request.Limit
	if limit == 0 {
		limit = s.opts.DefaultLimit
	}
	if limit > s.opts.MaxLimit {
		return &fiber.Error{Code: fiber.StatusBadRequest, Message: fmt.Sprintf("limit must be between 1 and %d", s.opts.MaxLimit)}
	}
	channel, ok := tgutil.ParseChannelHandle(request.TelegramLink)
	if !ok {
		return &fiber.Error{Code: fiber.StatusBadRequest, Message: tgutil.ErrInvalidLink.Error()}
	}

	ctx := c.UserContext()
	results, err := s.opts.Searcher.Search(ctx, types.SearchRequest{
		Channel: channel,
		Keyword: request.Keyword,
		Limit:   limit,
	})
	if err != nil {
		if errors.Is(err, engine.ErrSearchFailed) {
			return &fiber.Error{Code: fiber.StatusBadRequest, Message: err.Error()}
		}
		return &fiber.Error{Code: fiber.StatusInternalServerError, Message: err.Error()}
	}
	if len(results) == 0 {
		return &fiber.Error{Code: fiber.StatusNotFound, Message: noResultsMessage}
	}

	filename, err := s.opts.Builder.Build(results, request.Keyword, channel)
	if err != nil {
		log.FromContext(ctx).Error("Failed to build report", "channel", channel, "error", err)
		return &fiber.Error{Code: fiber.StatusInternalServerError, Message: "Failed to generate report: " + err.Error()}
	}
	log.FromContext(ctx).Info("Report generated", "channel", channel, "keyword", request.Keyword, "results", len(results), "file", filename)
	return c.JSON(SearchResponse{
		Success:      true,
		MessageCount: len(results),
		Filename:     filename,
		Channel:      channel,
		Keyword:      request.Keyword,
	})
}

// Download 下载生成的报告
//
//	@Summary		Download a generated report
//	@Tags			Search
//	@Produce		application/vnd.openxmlformats-officedocument.wordprocessingml.document
//	@Security		ApiKeyAuth
//	@Param			filename	path		string	true	"Report file name returned by /search"
//	@Success		200			{file}		file	"Word document"
//	@Failure		401			{object}	ErrorResponse	"Missing or invalid API key"
//	@Failure		404			{object}	ErrorResponse	"File not found"
//	@Router			/download/{filename} [get]
func (s *Server) Download(c *fiber.Ctx) error {
	file, err := s.opts.Store.Open(c.Params("filename"))
	if err != nil {
		if errors.Is(err, service.ErrReportNotFound) {
			return &fiber.Error{Code: fiber.StatusNotFound, Message: service.ErrReportNotFound.Error()}
		}
		return &fiber.Error{Code: fiber.StatusInternalServerError, Message: err.Error()}
	}
	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.Name))
	return c.SendStream(file, int(file.Size))
}
