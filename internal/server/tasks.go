package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"thumbcode/internal/orchestrator"
)

func (s *Server) listTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": s.manager.List()})
}

func (s *Server) createTask(c *gin.Context) {
	var req orchestrator.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	task, err := s.manager.Create(req)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) getTask(c *gin.Context) {
	task, err := s.manager.Get(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) updateTask(c *gin.Context) {
	var req orchestrator.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	task, err := s.manager.Update(c.Param("id"), req)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			respondError(c, http.StatusNotFound, err)
		} else {
			respondError(c, http.StatusBadRequest, err)
		}
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) cancelTask(c *gin.Context) {
	id := c.Param("id")
	if err := s.manager.Cancel(id); err != nil {
		respondError(c, http.StatusNotFound, err)
		return
	}
	task, err := s.manager.Get(id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) executionPlan(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.ExecutionPlan())
}

type planRequest struct {
	Goal string `json:"goal"`
}

func (s *Server) createPlan(c *gin.Context) {
	if s.planner == nil {
		respondError(c, http.StatusServiceUnavailable, fmt.Errorf("planning is not configured, set a provider API key"))
		return
	}

	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Goal) == "" {
		respondError(c, http.StatusBadRequest, fmt.Errorf("goal is required"))
		return
	}

	tasks, err := s.planner.Plan(c.Request.Context(), s.manager, req.Goal)
	if err != nil {
		respondError(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tasks": tasks})
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.Metrics())
}
