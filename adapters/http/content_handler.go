package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/khoahotran/portfolio-cms/internal/application/schema"
	"github.com/khoahotran/portfolio-cms/internal/application/store"
	"github.com/khoahotran/portfolio-cms/internal/application/usecase/asset"
	"github.com/khoahotran/portfolio-cms/pkg/apperror"
)

type ContentHandler struct {
	stores *store.Stores
}

func NewContentHandler(stores *store.Stores) *ContentHandler {
	return &ContentHandler{stores: stores}
}

func (h *ContentHandler) GetAbout(c *gin.Context) {
	h.stores.AboutMe.FetchAbout(c.Request.Context())
	c.JSON(http.StatusOK, h.stores.AboutMe.Snapshot())
}

func (h *ContentHandler) UpdateAbout(c *gin.Context) {
	var req schema.AboutMeForm
	if !bindJSON(c, &req) {
		return
	}
	res := h.stores.AboutMe.UpdateAbout(c.Request.Context(), req.Input())
	respondWrite(c, res, h.stores.AboutMe.Snapshot())
}

func (h *ContentHandler) GetSkillsSection(c *gin.Context) {
	h.stores.SkillsSection.FetchSection(c.Request.Context())
	c.JSON(http.StatusOK, h.stores.SkillsSection.Snapshot())
}

func (h *ContentHandler) UpdateSkillsSection(c *gin.Context) {
	var req schema.SkillsSectionForm
	if !bindJSON(c, &req) {
		return
	}
	res := h.stores.SkillsSection.UpdateSection(c.Request.Context(), req.Title, req.Description)
	respondWrite(c, res, h.stores.SkillsSection.Snapshot())
}

func (h *ContentHandler) ListSkills(c *gin.Context) {
	h.stores.Skills.FetchSkills(c.Request.Context())
	c.JSON(http.StatusOK, h.stores.Skills.Snapshot())
}

func (h *ContentHandler) CreateSkill(c *gin.Context) {
	name, icon, release, ok := bindSkill(c)
	if !ok {
		return
	}
	defer release()
	res := h.stores.Skills.AddSkill(c.Request.Context(), name, icon)
	respondWrite(c, res, h.stores.Skills.Snapshot())
}

func (h *ContentHandler) UpdateSkill(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	name, icon, release, ok := bindSkill(c)
	if !ok {
		return
	}
	defer release()
	res := h.stores.Skills.UpdateSkill(c.Request.Context(), id, name, icon)
	respondWrite(c, res, h.stores.Skills.Snapshot())
}

func (h *ContentHandler) DeleteSkill(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	res := h.stores.Skills.DeleteSkill(c.Request.Context(), id)
	respondWrite(c, res, h.stores.Skills.Snapshot())
}

func (h *ContentHandler) ListExperiences(c *gin.Context) {
	h.stores.Experiences.FetchExperiences(c.Request.Context())
	c.JSON(http.StatusOK, h.stores.Experiences.Snapshot())
}

func (h *ContentHandler) CreateExperience(c *gin.Context) {
	var req schema.ExperienceForm
	if !bindJSON(c, &req) {
		return
	}
	res := h.stores.Experiences.AddExperience(c.Request.Context(), req.Input())
	respondWrite(c, res, h.stores.Experiences.Snapshot())
}

func (h *ContentHandler) UpdateExperience(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req schema.ExperienceForm
	if !bindJSON(c, &req) {
		return
	}
	res := h.stores.Experiences.UpdateExperience(c.Request.Context(), id, req.Input())
	respondWrite(c, res, h.stores.Experiences.Snapshot())
}

func (h *ContentHandler) DeleteExperience(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	res := h.stores.Experiences.DeleteExperience(c.Request.Context(), id)
	respondWrite(c, res, h.stores.Experiences.Snapshot())
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(apperror.NewInvalidInput("invalid request data", err))
		return false
	}
	if err := schema.Validate(req); err != nil {
		_ = c.Error(err)
		return false
	}
	return true
}

func paramID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperror.NewInvalidInput("invalid id", err))
		return uuid.Nil, false
	}
	return id, true
}

// bindSkill reads the multipart skill form. The icon part is optional; the
// caller must call release once the icon has been consumed.
func bindSkill(c *gin.Context) (name string, icon *asset.File, release func(), ok bool) {
	var req schema.SkillForm
	if err := c.ShouldBind(&req); err != nil {
		_ = c.Error(apperror.NewInvalidInput("invalid request data", err))
		return "", nil, nil, false
	}
	if err := schema.Validate(req); err != nil {
		_ = c.Error(err)
		return "", nil, nil, false
	}

	fh, err := c.FormFile("icon")
	if errors.Is(err, http.ErrMissingFile) {
		return req.Name, nil, func() {}, true
	}
	if err != nil {
		_ = c.Error(apperror.NewInvalidInput("invalid icon upload", err))
		return "", nil, nil, false
	}

	contentType := fh.Header.Get("Content-Type")
	if err := schema.ValidateIcon(contentType, fh.Size); err != nil {
		_ = c.Error(err)
		return "", nil, nil, false
	}
	f, err := fh.Open()
	if err != nil {
		_ = c.Error(apperror.NewInternal("cannot open icon upload", err))
		return "", nil, nil, false
	}
	release = func() { _ = f.Close() }
	return req.Name, &asset.File{Name: fh.Filename, ContentType: contentType, Size: fh.Size, Body: f}, release, true
}
