package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.aura/internal/model"
)

func ListClans(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		clans, err := app.ListClans()
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, clans)
	}
}

func CreateClan(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &model.CreateClanParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		clan, err := app.CreateClan(params)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, clan)
	}
}

func JoinClan(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		clan, err := app.JoinClan(model.ClanID(c.Param("clanId")))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, clan)
	}
}
