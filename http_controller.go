package approvals

import (
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ControllerRoutes holds the paths served by the controller
type ControllerRoutes struct {
	UserLogin  string
	AdminLogin string
	Session    string
	Tasks      string
	AdminTasks string
	AdminUsers string
	Events     string
	Health     string
}

// DefaultControllerRoutes returns the standard paths
func DefaultControllerRoutes() *ControllerRoutes {
	return &ControllerRoutes{
		UserLogin:  "/auth/user/login",
		AdminLogin: "/auth/admin/login",
		Session:    "/auth/session",
		Tasks:      "/tasks",
		AdminTasks: "/admin/tasks",
		AdminUsers: "/admin-users",
		Events:     "/ws",
		Health:     "/health",
	}
}

// Controller exposes logins, tasks, the admin directory and the event stream over HTTP
type Controller struct {
	Logger    Logger
	Routes    *ControllerRoutes
	Auther    *Auther
	Guard     *RouteAuthenticator
	Tasks     *TaskService
	Directory *AdminDirectory
	Events    *EventStream
}

type ControllerOption func(*Controller) *Controller

func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) *Controller {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

func WithControllerRoutes(routes *ControllerRoutes) ControllerOption {
	return func(c *Controller) *Controller {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

func WithEventStream(events *EventStream) ControllerOption {
	return func(c *Controller) *Controller {
		c.Events = events
		return c
	}
}

// NewController wires the HTTP handlers, it panics on missing collaborators
func NewController(auther *Auther, guard *RouteAuthenticator, tasks *TaskService, directory *AdminDirectory, opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:    defLogger{},
		Routes:    DefaultControllerRoutes(),
		Auther:    auther,
		Guard:     guard,
		Tasks:     tasks,
		Directory: directory,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Auther in approvals controller...")
	}
	if c.Guard == nil {
		panic("Missing RouteAuthenticator in approvals controller...")
	}
	if c.Tasks == nil || c.Directory == nil {
		panic("Missing services in approvals controller...")
	}

	return c
}

// RegisterRoutes mounts every route on r
func (h *Controller) RegisterRoutes(r fiber.Router) {
	g := h.Guard

	r.Get(h.Routes.Health, h.Health)

	r.Post(h.Routes.UserLogin, h.UserLogin)
	r.Post(h.Routes.AdminLogin, h.AdminLogin)
	r.Get(h.Routes.Session, g.ProtectedRoute(""), g.RequireOperation(OpSessionRead), h.Session)

	userOnly := g.ProtectedRoute(SubjectUser)
	adminOnly := g.ProtectedRoute(SubjectAdmin)

	r.Get(h.Routes.Tasks, userOnly, g.RequireOperation(OpTasksListOwn), h.ListOwnTasks)
	r.Post(h.Routes.Tasks, userOnly, g.RequireOperation(OpTasksCreate), h.CreateTask)
	r.Get(h.Routes.AdminTasks, adminOnly, g.RequireOperation(OpTasksListAll), h.ListAllTasks)
	r.Patch(h.Routes.Tasks+"/:id/approve", adminOnly, g.RequireOperation(OpTasksReview), h.ApproveTask)
	r.Patch(h.Routes.Tasks+"/:id/reject", adminOnly, g.RequireOperation(OpTasksReview), h.RejectTask)

	r.Get(h.Routes.AdminUsers, adminOnly, g.RequireOperation(OpAdminUsersList), h.ListAdminUsers)
	r.Post(h.Routes.AdminUsers, adminOnly, g.RequireOperation(OpAdminUsersManage), h.CreateAdminUser)
	r.Put(h.Routes.AdminUsers+"/:id", adminOnly, g.RequireOperation(OpAdminUsersManage), h.UpdateAdminUser)
	r.Delete(h.Routes.AdminUsers+"/:id", adminOnly, g.RequireOperation(OpAdminUsersManage), h.DeleteAdminUser)

	if h.Events != nil {
		r.Get(h.Routes.Events,
			h.Events.RequireUpgrade(),
			g.ProtectedRoute("", "query:token"),
			g.RequireOperation(OpEventsSubscribe),
			h.Events.Handler(),
		)
	}
}

func (h *Controller) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Controller) UserLogin(c *fiber.Ctx) error {
	payload := LoginRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return ErrInvalidCredentials
	}
	session, err := h.Auther.LoginRequester(c.UserContext(), payload)
	if err != nil {
		return err
	}
	return c.JSON(session)
}

func (h *Controller) AdminLogin(c *fiber.Ctx) error {
	payload := LoginRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return ErrInvalidCredentials
	}
	session, err := h.Auther.LoginAdmin(c.UserContext(), payload)
	if err != nil {
		return err
	}
	return c.JSON(session)
}

func (h *Controller) Session(c *fiber.Ctx) error {
	claims, err := h.claims(c)
	if err != nil {
		return err
	}
	return c.JSON(SummarizeClaims(claims))
}

func (h *Controller) ListOwnTasks(c *fiber.Ctx) error {
	claims, err := h.claims(c)
	if err != nil {
		return err
	}
	tasks, err := h.Tasks.ListForUser(c.UserContext(), claims)
	if err != nil {
		return err
	}
	return c.JSON(tasks)
}

func (h *Controller) CreateTask(c *fiber.Ctx) error {
	claims, err := h.claims(c)
	if err != nil {
		return err
	}
	payload := CreateTaskMessage{}
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(err)
	}
	task, err := h.Tasks.Create(c.UserContext(), claims, payload)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

func (h *Controller) ListAllTasks(c *fiber.Ctx) error {
	claims, err := h.claims(c)
	if err != nil {
		return err
	}
	filter := TaskFilter{Status: TaskStatus(c.Query("status"))}
	tasks, err := h.Tasks.ListAll(c.UserContext(), claims, filter)
	if err != nil {
		return err
	}
	return c.JSON(tasks)
}

func (h *Controller) ApproveTask(c *fiber.Ctx) error {
	claims, err := h.claims(c)
	if err != nil {
		return err
	}
	id, err := parsePathID(c, ErrTaskNotFound)
	if err != nil {
		return err
	}
	task, err := h.Tasks.Approve(c.UserContext(), claims, id)
	if err != nil {
		return err
	}
	return c.JSON(task)
}

func (h *Controller) RejectTask(c *fiber.Ctx) error {
	claims, err := h.claims(c)
	if err != nil {
		return err
	}
	id, err := parsePathID(c, ErrTaskNotFound)
	if err != nil {
		return err
	}
	payload := RejectTaskMessage{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return invalidBody(err)
		}
	}
	task, err := h.Tasks.Reject(c.UserContext(), claims, id, payload.RejectionReason)
	if err != nil {
		return err
	}
	return c.JSON(task)
}

func (h *Controller) ListAdminUsers(c *fiber.Ctx) error {
	claims, err := h.claims(c)
	if err != nil {
		return err
	}
	records, err := h.Directory.List(c.UserContext(), claims)
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (h *Controller) CreateAdminUser(c *fiber.Ctx) error {
	claims, err := h.claims(c)
	if err != nil {
		return err
	}
	payload := CreateAdminUserMessage{}
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(err)
	}
	record, err := h.Directory.Create(c.UserContext(), claims, payload)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(record)
}

func (h *Controller) UpdateAdminUser(c *fiber.Ctx) error {
	claims, err := h.claims(c)
	if err != nil {
		return err
	}
	id, err := parsePathID(c, ErrAdminUserNotFound)
	if err != nil {
		return err
	}
	payload := UpdateAdminUserMessage{}
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(err)
	}
	payload.ID = id
	record, err := h.Directory.Update(c.UserContext(), claims, payload)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (h *Controller) DeleteAdminUser(c *fiber.Ctx) error {
	claims, err := h.claims(c)
	if err != nil {
		return err
	}
	id, err := parsePathID(c, ErrAdminUserNotFound)
	if err != nil {
		return err
	}
	if err := h.Directory.Delete(c.UserContext(), claims, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Controller) claims(c *fiber.Ctx) (AuthClaims, error) {
	claims, ok := GetFiberClaims(c, h.Guard.contextKey)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

// parsePathID reads :id, a malformed id can never match a record
func parsePathID(c *fiber.Ctx, notFound *goerrors.Error) (uuid.UUID, error) {
	raw := c.Params("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, withMetadata(notFound, map[string]any{"id": raw})
	}
	return id, nil
}

func invalidBody(err error) error {
	return withMessage(ErrValidation, "invalid request body", map[string]any{"cause": err.Error()})
}
