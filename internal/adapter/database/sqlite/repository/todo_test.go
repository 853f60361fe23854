package repository

import (
	"context"
	"fmt"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"todoitems/internal/adapter/database/sqlite"
	"todoitems/internal/core/domain"
	"todoitems/internal/core/port"
	"todoitems/internal/core/telemetry"
	. "todoitems/pkg/test"
	factory "todoitems/pkg/test/factory"
)

type TodoRepositorySuite struct {
	suite.Suite
	DB   *sqlite.DB
	Repo port.TodoRepository
}

var ctx = context.Background()

func (s *TodoRepositorySuite) SetupTest() {
	s.DB = InitTestDB()
	s.Repo = NewTodoRepository(s.DB, nil)
}

func (s *TodoRepositorySuite) TearDownTest() {
	CleanDB(s.T(), s.DB)
	s.DB.Close()
}

func TestTodoRepositorySuite(t *testing.T) {
	RegisterTestingT(t)
	suite.Run(t, new(TodoRepositorySuite))
}

func ptr[T any](v T) *T {
	return &v
}

func (s *TodoRepositorySuite) insert(name string, completed bool) domain.Todo {
	todo, err := s.Repo.Insert(ctx, factory.NewTodo[domain.Todo](map[string]any{
		"Name":      name,
		"Completed": completed,
	}))

	s.Require().NoError(err)

	return todo
}

func (s *TodoRepositorySuite) TestInsert_AssignsIDAndTimestamps() {
	todo, err := s.Repo.Insert(ctx, domain.Todo{
		Name:        "Write report",
		Description: ptr("quarterly"),
		Completed:   true,
	})

	Expect(err).To(BeNil())
	Expect(todo.ID).To(BeNumerically(">", 0))
	Expect(todo.Name).To(Equal("Write report"))
	Expect(*todo.Description).To(Equal("quarterly"))
	Expect(todo.Completed).To(BeTrue())
	Expect(todo.CreatedAt.IsZero()).To(BeFalse())
	Expect(todo.UpdatedAt.IsZero()).To(BeFalse())
}

func (s *TodoRepositorySuite) TestInsert_KeepsNullDescription() {
	todo, err := s.Repo.Insert(ctx, domain.Todo{Name: "No description"})

	Expect(err).To(BeNil())
	Expect(todo.Description).To(BeNil())
	Expect(todo.Completed).To(BeFalse())
}

func (s *TodoRepositorySuite) TestInsert_NeverReusesIDs() {
	first := s.insert("first", false)
	Expect(s.Repo.Delete(ctx, first.ID)).To(Succeed())

	second := s.insert("second", false)

	Expect(second.ID).To(BeNumerically(">", first.ID))
}

func (s *TodoRepositorySuite) TestFindByID() {
	created := s.insert("Find me", true)

	found, err := s.Repo.FindByID(ctx, created.ID)

	Expect(err).To(BeNil())
	Expect(found).ToNot(BeNil())
	Expect(found.ID).To(Equal(created.ID))
	Expect(found.Name).To(Equal("Find me"))
}

func (s *TodoRepositorySuite) TestFindByID_AbsentIsNotAnError() {
	for _, id := range []int64{9999, 0, -15} {
		found, err := s.Repo.FindByID(ctx, id)

		Expect(err).To(BeNil())
		Expect(found).To(BeNil())
	}
}

func (s *TodoRepositorySuite) TestList_PaginatesInIDOrder() {
	for i := 1; i <= 30; i++ {
		s.insert(fmt.Sprintf("Task %02d", i), i%2 == 0)
	}

	todos, total, err := s.Repo.List(ctx, domain.TodoFilter{}, domain.NewPageRequest(1, 25))

	Expect(err).To(BeNil())
	Expect(total).To(Equal(30))
	Expect(todos).To(HaveLen(25))
	Expect(todos[0].Name).To(Equal("Task 01"))

	todos, total, err = s.Repo.List(ctx, domain.TodoFilter{}, domain.NewPageRequest(2, 25))

	Expect(err).To(BeNil())
	Expect(total).To(Equal(30))
	Expect(todos).To(HaveLen(5))
	Expect(todos[0].Name).To(Equal("Task 26"))

	todos, _, err = s.Repo.List(ctx, domain.TodoFilter{}, domain.NewPageRequest(3, 25))

	Expect(err).To(BeNil())
	Expect(todos).To(BeEmpty())
}

func (s *TodoRepositorySuite) TestList_Filters() {
	s.insert("Alpha", true)
	s.insert("Alpha", false)
	s.insert("Beta", true)

	todos, total, err := s.Repo.List(ctx, domain.TodoFilter{Name: ptr("Alpha")}, domain.NewPageRequest(1, 25))
	Expect(err).To(BeNil())
	Expect(total).To(Equal(2))
	Expect(todos).To(HaveLen(2))

	todos, total, err = s.Repo.List(ctx, domain.TodoFilter{Completed: ptr(true)}, domain.NewPageRequest(1, 25))
	Expect(err).To(BeNil())
	Expect(total).To(Equal(2))

	for _, todo := range todos {
		Expect(todo.Completed).To(BeTrue())
	}

	todos, total, err = s.Repo.List(ctx, domain.TodoFilter{Name: ptr("Alpha"), Completed: ptr(false)}, domain.NewPageRequest(1, 25))
	Expect(err).To(BeNil())
	Expect(total).To(Equal(1))
	Expect(todos[0].Completed).To(BeFalse())

	todos, total, err = s.Repo.List(ctx, domain.TodoFilter{Name: ptr("alpha")}, domain.NewPageRequest(1, 25))
	Expect(err).To(BeNil())
	Expect(total).To(Equal(0))
	Expect(todos).To(BeEmpty())
}

func (s *TodoRepositorySuite) TestUpdate_ReplacesFields() {
	created, err := s.Repo.Insert(ctx, domain.Todo{Name: "Old", Description: ptr("old description")})
	s.Require().NoError(err)

	created.Name = "New"
	created.Description = nil
	created.Completed = true

	updated, err := s.Repo.Update(ctx, created)

	Expect(err).To(BeNil())
	Expect(updated.ID).To(Equal(created.ID))
	Expect(updated.Name).To(Equal("New"))
	Expect(updated.Description).To(BeNil())
	Expect(updated.Completed).To(BeTrue())
	Expect(updated.CreatedAt).To(Equal(created.CreatedAt))
}

func (s *TodoRepositorySuite) TestDelete_IsHard() {
	created := s.insert("Gone", false)

	Expect(s.Repo.Delete(ctx, created.ID)).To(Succeed())

	found, err := s.Repo.FindByID(ctx, created.ID)
	Expect(err).To(BeNil())
	Expect(found).To(BeNil())

	var rows int
	err = s.DB.QueryRow("SELECT COUNT(*) FROM todos WHERE id = ?", created.ID).Scan(&rows)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 0, rows)
}

func (s *TodoRepositorySuite) TestFactoryBuildsInsertableTodos() {
	for _, todo := range factory.NewTodos[domain.Todo](3, map[string]any{"Name": "Generated"}) {
		saved, err := s.Repo.Insert(ctx, todo)

		Expect(err).To(BeNil())
		Expect(saved.Name).To(Equal("Generated"))
	}

	_, total, err := s.Repo.List(ctx, domain.TodoFilter{Name: ptr("Generated")}, domain.NewPageRequest(1, 25))
	Expect(err).To(BeNil())
	Expect(total).To(Equal(3))
}

func recordedOperations(registry *prometheus.Registry) []string {
	families, err := registry.Gather()
	Expect(err).To(BeNil())

	var operations []string

	for _, family := range families {
		if family.GetName() != "database_operation_duration_seconds" {
			continue
		}

		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "operation" {
					operations = append(operations, label.GetValue())
				}
			}
		}
	}

	return operations
}

func TestTodoRepository_WritesRecordOnlyTheirOwnOperation(t *testing.T) {
	RegisterTestingT(t)

	db := InitTestDB()
	defer db.Close()

	registry := prometheus.NewRegistry()
	repo := NewTodoRepository(db, telemetry.NewOTELProbe(nil, telemetry.NewAppMetrics(registry)))

	created, err := repo.Insert(ctx, domain.Todo{Name: "Counted"})
	Expect(err).To(BeNil())
	Expect(created.ID).To(BeNumerically(">", 0))

	created.Completed = true
	updated, err := repo.Update(ctx, created)
	Expect(err).To(BeNil())
	Expect(updated.Completed).To(BeTrue())

	Expect(recordedOperations(registry)).To(ConsistOf("Insert", "Update"))

	_, err = repo.FindByID(ctx, created.ID)
	Expect(err).To(BeNil())
	Expect(recordedOperations(registry)).To(ConsistOf("FindByID", "Insert", "Update"))
}
