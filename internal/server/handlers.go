package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/budgetbox/budgetbox/internal/catalog"
	"github.com/budgetbox/budgetbox/internal/logger"
	"github.com/budgetbox/budgetbox/internal/submission"
)

type fundView struct {
	CategoryID int    `json:"category_id"`
	Name       string `json:"name"`
	Allocated  string `json:"allocated"`
	Debited    string `json:"debited"`
	Balance    string `json:"balance"`
}

func (s *Server) listCategories(c *gin.Context) {
	f := catalog.Filter{
		FundManaged: c.Query("fund_managed") == "true",
		RootsOnly:   c.Query("roots") == "true",
	}
	c.JSON(http.StatusOK, gin.H{"categories": s.deps.Categories.Descriptors(f)})
}

func (s *Server) suggest(c *gin.Context) {
	sug, ok, err := s.deps.Suggest.Suggest(c.Query("description"))
	if err != nil {
		log := logger.FromContext(c.Request.Context())
		log.Error().Err(err).Msg("suggesting category")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "suggestion unavailable"})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"suggestion": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestion": sug})
}

func (s *Server) listFunds(c *gin.Context) {
	bs, err := s.deps.Funds.Balances()
	if err != nil {
		log := logger.FromContext(c.Request.Context())
		log.Error().Err(err).Msg("reading fund balances")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fund balances unavailable"})
		return
	}

	out := make([]fundView, 0, len(bs))
	for _, b := range bs {
		name := ""
		if cat, ok := s.deps.Categories.Get(b.CategoryID); ok {
			name = cat.Name
		}
		out = append(out, fundView{
			CategoryID: b.CategoryID,
			Name:       name,
			Allocated:  b.Allocated.StringFixed(2),
			Debited:    b.Debited.StringFixed(2),
			Balance:    b.Balance.StringFixed(2),
		})
	}
	c.JSON(http.StatusOK, gin.H{"funds": out})
}

// target parses the :id and :kind params, answering 400/404 itself when
// they are invalid.
func target(c *gin.Context) (int, submission.Kind, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, submission.Result{Message: "invalid transaction ID"})
		return 0, "", false
	}
	kind, ok := submission.ParseKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusNotFound, submission.Result{Message: "unknown form " + strconv.Quote(c.Param("kind"))})
		return 0, "", false
	}
	return id, kind, true
}

func (s *Server) getForm(c *gin.Context) {
	id, kind, ok := target(c)
	if !ok {
		return
	}
	form, res, ok := s.deps.Submissions.Form(c.Request.Context(), kind, id)
	if !ok {
		c.JSON(res.Status, res)
		return
	}
	c.JSON(http.StatusOK, form)
}

func (s *Server) submit(c *gin.Context) {
	id, kind, ok := target(c)
	if !ok {
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, submission.Result{Message: "malformed form body"})
		return
	}
	res := s.deps.Submissions.Submit(c.Request.Context(), kind, id, c.Request.PostForm)
	c.JSON(res.Status, res)
}
