package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"uk.co.dudmesh.aura/internal/model"
)

var moderationActions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "aura_moderation_actions_total",
	Help: "Moderation actions applied, by action.",
}, []string{"action"})

type reasonParams struct {
	Reason  string `json:"reason"`
	Minutes *int   `json:"minutes"`
}

type moderateFunc func(app App, target model.UserID, params *reasonParams) (*model.User, error)

func toggleVerified(app App, target model.UserID, _ *reasonParams) (*model.User, error) {
	return app.ToggleVerified(target)
}

func toggleOfficial(app App, target model.UserID, _ *reasonParams) (*model.User, error) {
	return app.ToggleOfficial(target)
}

func toggleCreator(app App, target model.UserID, _ *reasonParams) (*model.User, error) {
	return app.ToggleContentCreator(target)
}

func banUser(app App, target model.UserID, params *reasonParams) (*model.User, error) {
	return app.BanUser(target, params.Reason)
}

func muteUser(app App, target model.UserID, params *reasonParams) (*model.User, error) {
	return app.MuteUser(target, params.Reason, params.Minutes)
}

func warnUser(app App, target model.UserID, params *reasonParams) (*model.User, error) {
	return app.WarnUser(target, params.Reason)
}

// moderationStrategies maps the action segment of
// /admin/users/:userId/:action onto the facade.
var moderationStrategies = map[string]moderateFunc{
	"verified": toggleVerified,
	"official": toggleOfficial,
	"creator":  toggleCreator,
	"ban":      banUser,
	"mute":     muteUser,
	"warn":     warnUser,
}

func ModerateUser(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		action := c.Param("action")
		strategy, ok := moderationStrategies[action]
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "unknown moderation action: "+action)
		}

		params := &reasonParams{}
		if err := c.Bind(params); err != nil {
			return err
		}

		user, err := strategy(app, model.UserID(c.Param("userId")), params)
		if err != nil {
			return err
		}
		moderationActions.WithLabelValues(action).Inc()
		return c.JSON(http.StatusOK, &userView{User: user})
	}
}

func DeletePost(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := app.DeletePost(model.PostID(c.Param("postId"))); err != nil {
			return err
		}
		moderationActions.WithLabelValues("delete_post").Inc()
		return c.NoContent(http.StatusNoContent)
	}
}

func ListUsers(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		users, err := app.ListUsers()
		if err != nil {
			return err
		}
		views := make([]*userView, 0, len(users))
		for i := range users {
			views = append(views, &userView{User: &users[i]})
		}
		return c.JSON(http.StatusOK, views)
	}
}

func ListWarnings(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		warnings, err := app.ListWarnings()
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, warnings)
	}
}

func SecurityStats(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		stats, err := app.SecurityStats()
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, stats)
	}
}

func GetSettings(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		settings, err := app.Settings()
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, settings)
	}
}

func UpdateSettings(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		patch := &model.SettingsPatch{}
		if err := c.Bind(patch); err != nil {
			return err
		}
		settings, err := app.UpdateSettings(patch)
		if err != nil {
			return err
		}
		moderationActions.WithLabelValues("update_settings").Inc()
		return c.JSON(http.StatusOK, settings)
	}
}
