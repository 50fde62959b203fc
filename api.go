package flowens

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/flow-platform/flowens/common"
	"github.com/flow-platform/flowens/schema"
)

func (s *FlowEns) runAPI(port string) {
	s.registerRoutes()
	if err := s.engine.Run(port); err != nil {
		panic(err)
	}
}

func (s *FlowEns) registerRoutes() {
	r := s.engine
	r.Use(common.CORSMiddleware())
	if s.config != nil {
		r.Use(common.LimiterMiddleware(600, "M", s.config.GetIPWhiteList()))
	}
	v1 := r.Group("/")
	{
		v1.GET("/info", s.getInfo)

		// name lookups
		v1.GET("/name/:label/available", s.getAvailable)
		v1.GET("/name/:label/price", s.getPrice)
		v1.GET("/name/:label/suggestions", s.getSuggestions)

		// registration attempts
		v1.POST("/attempt", s.newAttempt)
		v1.GET("/attempt/:id", s.getAttempt)
		v1.POST("/attempt/:id/check", s.checkAttempt)
		v1.POST("/attempt/:id/commit", s.commitAttempt)
		v1.POST("/attempt/:id/register", s.registerAttempt)

		v1.POST("/renew/:label", s.renewName)

		// domain watch
		v1.POST("/watch", s.addWatch)
		v1.GET("/watch/:label", s.getWatch)
		v1.DELETE("/watch/:label", s.removeWatch)

		v1.GET("/activities/:owner", s.getActivities)
		v1.GET("/registrations/:owner", s.getRegistrations)

		v1.POST("/chat", s.chat)
	}
}

func (s *FlowEns) getInfo(c *gin.Context) {
	minAge, maxAge := s.cache.GetCommitmentAges()
	c.JSON(http.StatusOK, gin.H{
		"identity":            s.identity.Address().Hex(),
		"resolver":            s.resolver.Hex(),
		"minCommitmentAgeSec": int64(minAge.Seconds()),
		"maxCommitmentAgeSec": int64(maxAge.Seconds()),
		"gasPriceWei":         s.cache.GetGasPrice().String(),
	})
}

func (s *FlowEns) getAvailable(c *gin.Context) {
	label := NormalizeLabel(c.Param("label"))
	if !ValidLabel(label) {
		errorResponse(c, ErrInvalidLabel.Error())
		return
	}
	available, err := s.NameAvailable(c, label)
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, schema.AvailableResp{
		Name:      label + "." + schema.DefaultTLD,
		Available: available,
	})
}

func (s *FlowEns) getPrice(c *gin.Context) {
	label := NormalizeLabel(c.Param("label"))
	if !ValidLabel(label) {
		errorResponse(c, ErrInvalidLabel.Error())
		return
	}
	years, err := strconv.Atoi(c.DefaultQuery("years", "1"))
	if err != nil || years <= 0 {
		errorResponse(c, "invalid years")
		return
	}
	quote, err := s.NamePrice(c, label, years)
	if err != nil {
		if errors.Is(err, ErrPricing) {
			errorResponse(c, err.Error())
		} else {
			internalErrorResponse(c, err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (s *FlowEns) getSuggestions(c *gin.Context) {
	label := NormalizeLabel(c.Param("label"))
	c.JSON(http.StatusOK, SuggestedNames(label))
}

func (s *FlowEns) newAttempt(c *gin.Context) {
	req := schema.NewAttemptReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	a, err := s.NewRegistrationAttempt(c.Query("owner"), req)
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *FlowEns) getAttempt(c *gin.Context) {
	a, err := s.attemptMg.Get(c.Param("id"))
	if err != nil {
		notFoundResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *FlowEns) checkAttempt(c *gin.Context) {
	a, err := s.CheckAttempt(c, c.Param("id"))
	if err != nil {
		attemptErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *FlowEns) commitAttempt(c *gin.Context) {
	a, err := s.CommitAttempt(c, c.Param("id"))
	if err != nil {
		attemptErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *FlowEns) registerAttempt(c *gin.Context) {
	a, err := s.FinalizeAttempt(c, c.Param("id"))
	if err != nil {
		attemptErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *FlowEns) renewName(c *gin.Context) {
	label := NormalizeLabel(c.Param("label"))
	years, err := strconv.Atoi(c.DefaultQuery("years", "1"))
	if err != nil || years <= 0 {
		errorResponse(c, "invalid years")
		return
	}
	result, err := s.RenewName(c, label, years)
	if err != nil {
		attemptErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *FlowEns) addWatch(c *gin.Context) {
	req := schema.WatchReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	if err := s.AddWatch(c, req.Label, req.Owner); err != nil {
		errorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (s *FlowEns) getWatch(c *gin.Context) {
	wd, err := s.GetWatch(c.Param("label"))
	if err != nil {
		notFoundResponse(c, schema.ErrNotExist.Error())
		return
	}
	c.JSON(http.StatusOK, wd)
}

func (s *FlowEns) removeWatch(c *gin.Context) {
	if err := s.RemoveWatch(c.Param("label")); err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (s *FlowEns) getActivities(c *gin.Context) {
	cursorId, err := strconv.Atoi(c.DefaultQuery("cursorId", "0"))
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	num, err := strconv.Atoi(c.DefaultQuery("num", "20"))
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	activities, err := s.GetActivities(c.Param("owner"), cursorId, num)
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, activities)
}

func (s *FlowEns) getRegistrations(c *gin.Context) {
	records, err := s.GetRegistrations(c.Param("owner"))
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *FlowEns) chat(c *gin.Context) {
	req := schema.ChatReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	resp, err := s.Chat(c, req.Message, c.Query("owner"))
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}

// attemptErrorResponse maps workflow errors onto status codes. Maturation
// waits carry the remaining seconds so clients can schedule the retry.
func attemptErrorResponse(c *gin.Context, err error) {
	var tooEarly *TooEarlyError
	if errors.As(err, &tooEarly) {
		c.JSON(http.StatusBadRequest, schema.TooEarlyResp{
			Err:              ErrTooEarly.Error(),
			RemainingSeconds: int64(tooEarly.Remaining.Seconds()) + 1,
		})
		return
	}
	switch {
	case errors.Is(err, ErrAttemptNotFound):
		notFoundResponse(c, err.Error())
	case errors.Is(err, ErrNetwork):
		internalErrorResponse(c, err.Error())
	default:
		errorResponse(c, err.Error())
	}
}

func errorResponse(c *gin.Context, err string) {
	// client error
	c.JSON(http.StatusBadRequest, schema.RespErr{
		Err: err,
	})
}

func notFoundResponse(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, schema.RespErr{
		Err: err,
	})
}

func internalErrorResponse(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, schema.RespErr{
		Err: err,
	})
}
