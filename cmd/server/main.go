package main

import (
	"fmt"
	"log"
	"net/http"

	"squadup/backend/internal/auth"
	"squadup/backend/internal/config"
	"squadup/backend/internal/database"
	"squadup/backend/internal/engine"
	"squadup/backend/internal/handler"
	"squadup/backend/internal/hub"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func init() {
	config.LoadConfig()
}

// @title           SquadUp API
// @version         1.0
// @description     Backend-as-a-service for multiplayer games: accounts, parties, lobbies, leaderboards, storage.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	// Connect to the database
	database.Connect(config.AppConfig.DatabaseURL)

	// Engine wiring. The hook gateway is injected here; swap NopGateway
	// for a plugin-backed gateway to veto joins.
	events := hub.NewHub()
	var hooks engine.HookGateway = engine.NopGateway{}
	partyMgr := engine.NewPartyManager(database.DB, events)
	lobbyMgr := engine.NewLobbyManager(database.DB, hooks, events)
	coordinator := engine.NewCoordinator(database.DB, hooks, events)
	handler.Setup(partyMgr, lobbyMgr, coordinator, events)

	router := gin.Default()

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", handler.RegisterUser)
			authRoutes.POST("/login", handler.LoginUser)
		}

		// User routes (protected)
		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.AuthMiddleware())
		{
			userRoutes.GET("", handler.SearchUsers) // Must be before /:id
			userRoutes.GET("/me", handler.GetMe)
			userRoutes.DELETE("/me", handler.DeleteMe)
			userRoutes.GET("/me/relations", handler.GetRelations)
			userRoutes.GET("/:id", handler.GetUserByID)
			userRoutes.GET("/:id/relations", handler.GetUserRelationsByID)

			// Friendship routes
			userRoutes.POST("/:id/request", handler.SendRequest)
			userRoutes.POST("/:id/accept", handler.AcceptRequest)
			userRoutes.POST("/:id/decline", handler.DeclineRequest)
			userRoutes.POST("/:id/remove", handler.RemoveRelation)
		}

		// Party routes (protected)
		partyRoutes := apiV1.Group("/parties")
		partyRoutes.Use(auth.AuthMiddleware())
		{
			partyRoutes.POST("", handler.CreateParty)
			partyRoutes.PUT("", handler.UpdateParty)
			partyRoutes.GET("/me", handler.GetMyParty)
			partyRoutes.POST("/:id/join", handler.JoinParty)
			partyRoutes.POST("/leave", handler.LeaveParty)
			partyRoutes.DELETE("/members/:userID", handler.KickPartyMember)
			partyRoutes.POST("/members/:userID/promote", handler.PromotePartyLeader)

			// Invites
			partyRoutes.POST("/invites", handler.InviteToParty)
			partyRoutes.GET("/invites", handler.ListPartyInvites)
			partyRoutes.POST("/invites/:id/accept", handler.AcceptPartyInvite)
			partyRoutes.POST("/invites/:id/decline", handler.DeclinePartyInvite)
			partyRoutes.POST("/invites/:id/cancel", handler.CancelPartyInvite)
		}

		// Lobby browsing is public; a token is picked up when present.
		lobbyBrowse := apiV1.Group("/lobbies")
		lobbyBrowse.Use(auth.OptionalAuthMiddleware())
		{
			lobbyBrowse.GET("", handler.SearchLobbies)
			lobbyBrowse.GET("/:id", handler.GetLobbyByID)
		}

		// Lobby routes (protected)
		lobbyRoutes := apiV1.Group("/lobbies")
		lobbyRoutes.Use(auth.AuthMiddleware())
		{
			lobbyRoutes.POST("", handler.CreateLobby)
			lobbyRoutes.POST("/quickjoin", handler.QuickJoinLobby)
			lobbyRoutes.POST("/leave", handler.LeaveLobby) // No ID needed, user leaves their own lobby
			lobbyRoutes.DELETE("/members/:userID", handler.KickLobbyMember)
			lobbyRoutes.POST("/messages", handler.PostLobbyMessage)
			lobbyRoutes.GET("/messages", handler.ListLobbyMessages)

			// Composite party transitions
			lobbyRoutes.POST("/party", handler.CreateLobbyWithParty)
			lobbyRoutes.POST("/:id/party-join", handler.JoinLobbyWithParty)

			lobbyRoutes.PUT("/:id", handler.UpdateLobby)
			lobbyRoutes.POST("/:id/join", handler.JoinLobby)
		}

		// Leaderboard routes (protected)
		leaderboardRoutes := apiV1.Group("/leaderboards")
		leaderboardRoutes.Use(auth.AuthMiddleware())
		{
			leaderboardRoutes.GET("", handler.ListLeaderboards)
			leaderboardRoutes.GET("/:slug", handler.GetLeaderboardTop)
			leaderboardRoutes.GET("/:slug/me", handler.GetMyRank)
			leaderboardRoutes.POST("/:slug/scores", handler.SubmitScore)
		}

		// Storage routes (protected)
		storageRoutes := apiV1.Group("/storage")
		storageRoutes.Use(auth.AuthMiddleware())
		{
			storageRoutes.GET("/:collection", handler.ListStoreObjects)
			storageRoutes.GET("/:collection/:key", handler.GetStoreObject)
			storageRoutes.PUT("/:collection/:key", handler.PutStoreObject)
			storageRoutes.DELETE("/:collection/:key", handler.DeleteStoreObject)
		}

		// Admin routes (protected by auth and admin check)
		adminRoutes := apiV1.Group("/admin")
		adminRoutes.Use(auth.AuthMiddleware(), auth.AdminMiddleware())
		{
			adminRoutes.POST("/leaderboards", handler.CreateLeaderboard)
			adminRoutes.DELETE("/leaderboards/:slug/scores", handler.ResetLeaderboard)
		}
	}

	fmt.Printf("Server is running on %s\n", config.AppConfig.ListenAddr)
	fmt.Println("Swagger UI is available at http://localhost:8080/swagger/index.html")
	log.Fatal(router.Run(config.AppConfig.ListenAddr))
}
