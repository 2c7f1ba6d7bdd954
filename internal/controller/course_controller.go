package controller

import (
	"ai-livecourse-be/internal/dto"
	"ai-livecourse-be/internal/pkg/serverutils"
	"ai-livecourse-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ICourseController interface {
	RegisterRoutes(r fiber.Router)
	InitSession(ctx *fiber.Ctx) error
	Send(ctx *fiber.Ctx) error
	Next(ctx *fiber.Ctx) error
	Pause(ctx *fiber.Ctx) error
	Resume(ctx *fiber.Ctx) error
	Override(ctx *fiber.Ctx) error
	Refine(ctx *fiber.Ctx) error
	End(ctx *fiber.Ctx) error
	State(ctx *fiber.Ctx) error
	Metrics(ctx *fiber.Ctx) error
	SeedMaterial(ctx *fiber.Ctx) error
}

type courseController struct {
	courseService service.ICourseService
}

func NewCourseController(courseService service.ICourseService) ICourseController {
	return &courseController{
		courseService: courseService,
	}
}

func (c *courseController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/course/v1")
	h.Post("session", c.InitSession)
	h.Post("session/:id/send", c.Send)
	h.Post("session/:id/next", c.Next)
	h.Post("session/:id/pause", c.Pause)
	h.Post("session/:id/resume", c.Resume)
	h.Post("session/:id/override", c.Override)
	h.Post("session/:id/refine", c.Refine)
	h.Post("session/:id/end", c.End)
	h.Get("session/:id/state", c.State)
	h.Get("session/:id/metrics", c.Metrics)
	h.Post("material", c.SeedMaterial)
}

func (c *courseController) InitSession(ctx *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return err
		}
	}

	res, err := c.courseService.InitSession(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success init session", res))
}

func (c *courseController) Send(ctx *fiber.Ctx) error {
	var req dto.SendQuestionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.courseService.Send(ctx.Context(), ctx.Params("id"), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send question", res))
}

func (c *courseController) Next(ctx *fiber.Ctx) error {
	advanced, err := c.courseService.Next(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success step session", fiber.Map{"advanced": advanced}))
}

func (c *courseController) Pause(ctx *fiber.Ctx) error {
	var req dto.PauseRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return err
		}
	}

	res, err := c.courseService.Pause(ctx.Context(), ctx.Params("id"), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success pause session", res))
}

func (c *courseController) Resume(ctx *fiber.Ctx) error {
	res, err := c.courseService.Resume(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success resume session", res))
}

func (c *courseController) Override(ctx *fiber.Ctx) error {
	var req dto.OverrideRouteRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.courseService.Override(ctx.Context(), ctx.Params("id"), &req); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success override route", nil))
}

func (c *courseController) Refine(ctx *fiber.Ctx) error {
	var req dto.RefineRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.courseService.Refine(ctx.Context(), ctx.Params("id"), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success refine lesson", res))
}

func (c *courseController) End(ctx *fiber.Ctx) error {
	if err := c.courseService.End(ctx.Context(), ctx.Params("id")); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success end session", nil))
}

func (c *courseController) State(ctx *fiber.Ctx) error {
	res, err := c.courseService.State(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session state", res))
}

func (c *courseController) Metrics(ctx *fiber.Ctx) error {
	res, err := c.courseService.Metrics(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session metrics", res))
}

func (c *courseController) SeedMaterial(ctx *fiber.Ctx) error {
	var req dto.SeedMaterialRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.courseService.SeedMaterial(ctx.Context(), &req); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success seed material", nil))
}
