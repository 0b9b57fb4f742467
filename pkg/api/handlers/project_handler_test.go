package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/forecastry/montecarlo/internal/storage"
	"github.com/forecastry/montecarlo/pkg/api/dto"
	"github.com/forecastry/montecarlo/pkg/api/handlers"
	"github.com/forecastry/montecarlo/pkg/models"
)

// MockProjectRepository is a mock implementation of storage.ProjectRepository.
type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) Create(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockProjectRepository) Get(ctx context.Context, id string) (*models.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectRepository) GetByName(ctx context.Context, name string) (*models.Project, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectRepository) List(ctx context.Context, filters storage.ProjectFilters) ([]*models.Project, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Project), args.Error(1)
}

func (m *MockProjectRepository) Update(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockProjectRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProjectRepository) Pause(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProjectRepository) Unpause(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func validTaskDTOs() []dto.TaskDTO {
	return []dto.TaskDTO{
		{ID: "task1", Name: "Task 1", Category: "design", Optimistic: 1, MostLikely: 2, Pessimistic: 4},
	}
}

func TestCreateProject(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("successful creation", func(t *testing.T) {
		mockRepo := new(MockProjectRepository)
		handler := handlers.NewProjectHandler(mockRepo)

		mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Project")).Return(nil)

		reqBody := dto.CreateProjectRequest{
			Name:        "test_project",
			Description: "Test Project",
			Schedule:    "0 0 * * *",
			Tasks:       validTaskDTOs(),
		}

		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router := gin.Default()
		router.POST("/api/v1/projects", handler.CreateProject)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		mockRepo.AssertExpectations(t)
	})

	t.Run("invalid request body", func(t *testing.T) {
		mockRepo := new(MockProjectRepository)
		handler := handlers.NewProjectHandler(mockRepo)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", bytes.NewReader([]byte("invalid json")))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router := gin.Default()
		router.POST("/api/v1/projects", handler.CreateProject)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("cyclic dependency rejected", func(t *testing.T) {
		mockRepo := new(MockProjectRepository)
		handler := handlers.NewProjectHandler(mockRepo)

		reqBody := dto.CreateProjectRequest{
			Name: "cyclic_project",
			Tasks: []dto.TaskDTO{
				{ID: "a", Name: "A", Predecessors: []string{"b"}, Optimistic: 1, MostLikely: 2, Pessimistic: 3},
				{ID: "b", Name: "B", Predecessors: []string{"a"}, Optimistic: 1, MostLikely: 2, Pessimistic: 3},
			},
		}

		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router := gin.Default()
		router.POST("/api/v1/projects", handler.CreateProject)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListProjects(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("successful list", func(t *testing.T) {
		mockRepo := new(MockProjectRepository)
		handler := handlers.NewProjectHandler(mockRepo)

		projects := []*models.Project{
			{ID: "project1", Name: "Test Project 1", Description: "Description 1", Tasks: []models.Task{}},
		}

		mockRepo.On("List", mock.Anything, mock.Anything).Return(projects, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
		w := httptest.NewRecorder()

		router := gin.Default()
		router.GET("/api/v1/projects", handler.ListProjects)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.ProjectListResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, 1, len(response.Projects))
		mockRepo.AssertExpectations(t)
	})
}

func TestGetProject(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("successful get", func(t *testing.T) {
		mockRepo := new(MockProjectRepository)
		handler := handlers.NewProjectHandler(mockRepo)

		project := &models.Project{ID: "project1", Name: "Test Project", Description: "Description", Tasks: []models.Task{}}

		mockRepo.On("Get", mock.Anything, "project1").Return(project, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/project1", nil)
		w := httptest.NewRecorder()

		router := gin.Default()
		router.GET("/api/v1/projects/:id", handler.GetProject)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.ProjectResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Test Project", response.Name)
		mockRepo.AssertExpectations(t)
	})

	t.Run("project not found", func(t *testing.T) {
		mockRepo := new(MockProjectRepository)
		handler := handlers.NewProjectHandler(mockRepo)

		mockRepo.On("Get", mock.Anything, "nonexistent").Return(nil, assert.AnError)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/nonexistent", nil)
		w := httptest.NewRecorder()

		router := gin.Default()
		router.GET("/api/v1/projects/:id", handler.GetProject)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockRepo.AssertExpectations(t)
	})
}

func TestDeleteProject(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("successful delete", func(t *testing.T) {
		mockRepo := new(MockProjectRepository)
		handler := handlers.NewProjectHandler(mockRepo)

		mockRepo.On("Delete", mock.Anything, "project1").Return(nil)

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/projects/project1", nil)
		w := httptest.NewRecorder()

		router := gin.Default()
		router.DELETE("/api/v1/projects/:id", handler.DeleteProject)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		mockRepo.AssertExpectations(t)
	})
}

func TestPauseProject(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("successful pause", func(t *testing.T) {
		mockRepo := new(MockProjectRepository)
		handler := handlers.NewProjectHandler(mockRepo)

		mockRepo.On("Pause", mock.Anything, "project1").Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/project1/pause", nil)
		w := httptest.NewRecorder()

		router := gin.Default()
		router.POST("/api/v1/projects/:id/pause", handler.PauseProject)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockRepo.AssertExpectations(t)
	})
}
