package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/LingoFox/internal/pkg/languages"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shopcontext"
)

const languagesPath = "/app/languages"

func (ac *AppController) HandleLanguages(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	langs, err := ac.Languages.List(ctx, shopcontext.Shop(c))
	if err != nil {
		return ac.renderError(c, err)
	}
	return ac.render(c, "languages", "Languages", fiber.Map{"Languages": langs})
}

// HandleLanguagesPost runs one of the create, delete and setDefault actions.
func (ac *AppController) HandleLanguagesPost(c *fiber.Ctx) error {
	shop := shopcontext.Shop(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	var err error
	var message string
	switch action := c.FormValue("action"); action {
	case "create":
		var in languages.CreateInput
		if err = c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		in.Code = strings.TrimSpace(in.Code)
		_, err = ac.Languages.Create(ctx, shop, in)
		message = "Language added"
	case "delete":
		err = ac.Languages.Delete(ctx, shop, c.FormValue("code"))
		message = "Language deleted"
	case "setDefault":
		_, err = ac.Languages.SetDefault(ctx, shop, c.FormValue("code"))
		message = "Default language updated"
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid action"})
	}

	if wantsHTML(c) {
		if err != nil {
			return flash.WithError(c, fiber.Map{"type": "error", "message": errorMessage(err, errorStatus(err))}).Redirect(languagesPath)
		}
		return flash.WithSuccess(c, fiber.Map{"type": "success", "message": message}).Redirect(languagesPath)
	}
	if err != nil {
		if errorStatus(err) == fiber.StatusInternalServerError {
			return RespondError(c, err)
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": errorMessage(err, fiber.StatusBadRequest)})
	}
	return c.JSON(fiber.Map{"success": true})
}
