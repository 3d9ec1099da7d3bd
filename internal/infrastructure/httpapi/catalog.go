package httpapi

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"UpdateSentinel/internal/domain"
)

func (s *Server) getStats(c *fiber.Ctx) error {
	stats, err := s.store.Stats(c.Context(), nowUTC())
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(stats)
}

func (s *Server) listVendors(c *fiber.Ctx) error {
	vendors, err := s.store.Vendors(c.Context())
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	out := make([]vendorDTO, 0, len(vendors))
	for _, v := range vendors {
		out = append(out, toVendorDTO(v))
	}
	return c.JSON(out)
}

func (s *Server) createVendor(c *fiber.Ctx) error {
	var req vendorRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	if strings.TrimSpace(req.Name) == "" {
		return fail(c, fiber.StatusBadRequest, fmt.Errorf("vendor name is required"))
	}

	vendor, err := s.store.CreateVendor(c.Context(), domain.Vendor{
		Name:        req.Name,
		Description: req.Description,
		Website:     req.Website,
	})
	if err != nil {
		return fail(c, fiber.StatusConflict, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toVendorDTO(vendor))
}

func (s *Server) updateVendor(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	var req vendorRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}

	vendor, err := s.store.UpdateVendor(c.Context(), domain.Vendor{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Website:     req.Website,
	})
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(toVendorDTO(vendor))
}

func (s *Server) deleteVendor(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	if err := s.store.DeleteVendor(c.Context(), id); err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) listSources(c *fiber.Ctx) error {
	sources, err := s.store.Sources(c.Context())
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	out := make([]sourceDTO, 0, len(sources))
	for _, src := range sources {
		out = append(out, toSourceDTO(src))
	}
	return c.JSON(out)
}

func (s *Server) createSource(c *fiber.Ctx) error {
	var req sourceRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	source, err := sourceFromRequest(req)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}

	created, err := s.store.CreateSource(c.Context(), source)
	if err != nil {
		return fail(c, fiber.StatusConflict, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toSourceDTO(created))
}

func (s *Server) updateSource(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	existing, err := s.store.SourceByID(c.Context(), id)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}

	req := sourceRequest{
		VendorID:    existing.VendorID,
		Name:        existing.Name,
		URL:         existing.URL,
		Type:        string(existing.Type),
		CSSSelector: existing.CSSSelector,
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}

	source, err := sourceFromRequest(req)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	source.ID = id
	if req.IsActive == nil {
		source.IsActive = existing.IsActive
	}
	if req.BridgeToggle == nil {
		source.BridgeToggle = existing.BridgeToggle
	}

	updated, err := s.store.UpdateSource(c.Context(), source)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(toSourceDTO(updated))
}

func sourceFromRequest(req sourceRequest) (domain.Source, error) {
	if req.VendorID == uuid.Nil {
		return domain.Source{}, fmt.Errorf("vendorId is required")
	}
	if strings.TrimSpace(req.URL) == "" {
		return domain.Source{}, fmt.Errorf("url is required")
	}

	sourceType := domain.SourceType(strings.ToUpper(req.Type))
	switch sourceType {
	case domain.SourceRSS, domain.SourceHTML, domain.SourceAPI:
	default:
		return domain.Source{}, fmt.Errorf("unknown source type %q", req.Type)
	}

	source := domain.Source{
		VendorID:     req.VendorID,
		Name:         req.Name,
		URL:          req.URL,
		Type:         sourceType,
		CSSSelector:  req.CSSSelector,
		IsActive:     true,
		BridgeToggle: true,
	}
	if req.IsActive != nil {
		source.IsActive = *req.IsActive
	}
	if req.BridgeToggle != nil {
		source.BridgeToggle = *req.BridgeToggle
	}
	return source, nil
}

func (s *Server) listModules(c *fiber.Ctx) error {
	modules, err := s.store.Modules(c.Context())
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	out := make([]moduleDTO, 0, len(modules))
	for _, m := range modules {
		out = append(out, toModuleDTO(m))
	}
	return c.JSON(out)
}

func (s *Server) createModule(c *fiber.Ctx) error {
	var req moduleRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	if strings.TrimSpace(req.Code) == "" {
		return fail(c, fiber.StatusBadRequest, fmt.Errorf("module code is required"))
	}

	module, err := s.store.CreateModule(c.Context(), domain.Module{
		Code:  req.Code,
		Title: req.Title,
		Hours: req.Hours,
		Notes: req.Notes,
	})
	if err != nil {
		return fail(c, fiber.StatusConflict, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toModuleDTO(module))
}

func (s *Server) listAssets(c *fiber.Ctx) error {
	assets, err := s.store.Assets(c.Context())
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	out := make([]assetDTO, 0, len(assets))
	for _, a := range assets {
		out = append(out, toAssetDTO(a))
	}
	return c.JSON(out)
}

func (s *Server) createAsset(c *fiber.Ctx) error {
	var req assetRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	if req.ModuleID == uuid.Nil {
		return fail(c, fiber.StatusBadRequest, fmt.Errorf("moduleId is required"))
	}

	assetType := domain.AssetType(strings.ToUpper(req.AssetType))
	switch assetType {
	case domain.AssetSlides, domain.AssetToolClip, domain.AssetScreenDemo:
	default:
		return fail(c, fiber.StatusBadRequest, fmt.Errorf("unknown asset type %q", req.AssetType))
	}

	asset, err := s.store.CreateAsset(c.Context(), domain.Asset{
		ModuleID:       req.ModuleID,
		LessonCode:     req.LessonCode,
		AssetType:      assetType,
		Sensitivity:    domain.Sensitivity(req.Sensitivity),
		ToolDependency: req.ToolDependency,
		TriggerTags:    req.TriggerTags,
		Link:           req.Link,
	})
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toAssetDTO(asset))
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q", c.Params("id"))
	}
	return id, nil
}
