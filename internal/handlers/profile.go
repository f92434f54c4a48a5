package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.aura/internal/model"
	"uk.co.dudmesh.aura/internal/service/session"
)

const AvatarField = "avatar"

type passwordParams struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func SaveProfile(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &model.ProfileParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		current, err := app.SaveProfile(params)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, &sessionView{Session: current})
	}
}

func ChangePassword(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &passwordParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		if err := app.ChangePassword(params.OldPassword, params.NewPassword, params.ConfirmPassword); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// UpdateAvatar accepts a multipart upload in the avatar field.
func UpdateAvatar(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		header, err := c.FormFile(AvatarField)
		if err != nil {
			return model.ErrorInvalidAvatar
		}
		if header.Size > session.MaxAvatarSize {
			return model.ErrorInvalidAvatar
		}

		file, err := header.Open()
		if err != nil {
			return fmt.Errorf("opening avatar: %w", err)
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, session.MaxAvatarSize+1))
		if err != nil {
			return fmt.Errorf("reading avatar: %w", err)
		}

		current, err := app.UpdateAvatar(header.Header.Get(echo.HeaderContentType), data)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, &sessionView{Session: current})
	}
}
