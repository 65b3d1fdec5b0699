package handler

import (
	"net/http"
	"strconv"

	"squadup/backend/internal/database"
	"squadup/backend/internal/engine"
	"squadup/backend/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// region --- DTOs ---

type PartyInput struct {
	MaxSize int `json:"max_size" binding:"omitempty,min=1,max=16"`
}

type PartyResponse struct {
	ID       uint                 `json:"id"`
	LeaderID uint                 `json:"leader_id"`
	MaxSize  int                  `json:"max_size"`
	Members  []PublicUserResponse `json:"members"`
}

type PartyInviteInput struct {
	UserID uint `json:"user_id" binding:"required"`
}

type PartyInviteResponse struct {
	ID      uint               `json:"id"`
	PartyID uint               `json:"party_id"`
	From    PublicUserResponse `json:"from"`
	Status  string             `json:"status"`
}

func newPartyResponse(party models.Party, members []models.User) PartyResponse {
	memberResponses := make([]PublicUserResponse, 0, len(members))
	for _, member := range members {
		memberResponses = append(memberResponses, buildPublicUserResponse(member))
	}
	return PartyResponse{
		ID:       party.ID,
		LeaderID: party.LeaderID,
		MaxSize:  party.MaxSize,
		Members:  memberResponses,
	}
}

func loadPartyResponse(c *gin.Context, partyID uint) {
	var party models.Party
	// Members come back in succession order, so the first entry is the
	// next leader.
	preload := func(db *gorm.DB) *gorm.DB { return db.Order("party_joined_seq asc, id asc") }
	if err := database.DB.Preload("Members", preload).First(&party, partyID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Party not found"})
		return
	}
	c.JSON(http.StatusOK, newPartyResponse(party, party.Members))
}

// endregion

// CreateParty godoc
// @Summary      Create a party
// @Description  Creates a new party with the caller as sole member and leader.
// @Tags         parties
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body PartyInput true "Party Info"
// @Success      201  {object}  PartyResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse "already_in_party"
// @Router       /parties [post]
func CreateParty(c *gin.Context) {
	userID, _ := c.Get("userID")

	var input PartyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	party, err := partyMgr.CreateParty(userID.(uint), engine.PartyAttrs{MaxSize: input.MaxSize})
	if err != nil {
		respondEngineError(c, err)
		return
	}

	var full models.Party
	database.DB.Preload("Members").First(&full, party.ID)
	c.JSON(http.StatusCreated, newPartyResponse(full, full.Members))
}

// GetMyParty godoc
// @Summary      Get own party
// @Tags         parties
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} PartyResponse
// @Failure      404 {object} ErrorResponse "not_in_party"
// @Router       /parties/me [get]
func GetMyParty(c *gin.Context) {
	userID, _ := c.Get("userID")

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil || user.PartyID == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: string(engine.ErrNotInParty)})
		return
	}
	loadPartyResponse(c, *user.PartyID)
}

// JoinParty godoc
// @Summary      Join a party
// @Description  Joins an existing party if it has a free slot and the caller has no party.
// @Tags         parties
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Party ID"
// @Success      200 {object} map[string]string "{"message": "Joined party successfully"}"
// @Failure      404 {object} ErrorResponse "party_not_found"
// @Failure      409 {object} ErrorResponse "party_full or already_in_party"
// @Router       /parties/{id}/join [post]
func JoinParty(c *gin.Context) {
	userID, _ := c.Get("userID")
	partyID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid party ID"})
		return
	}

	if err := partyMgr.JoinParty(userID.(uint), uint(partyID)); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Joined party successfully"})
}

// LeaveParty godoc
// @Summary      Leave the current party
// @Description  Leaves the party. A leaving leader hands leadership to the earliest-joined member; the last member leaving disbands the party.
// @Tags         parties
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]string "{"message": "Left party successfully"}"
// @Failure      404 {object} ErrorResponse "not_in_party"
// @Router       /parties/leave [post]
func LeaveParty(c *gin.Context) {
	userID, _ := c.Get("userID")

	if err := partyMgr.LeaveParty(userID.(uint)); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Left party successfully"})
}

// KickPartyMember godoc
// @Summary      Kick a party member (Leader only)
// @Tags         parties
// @Produce      json
// @Security     BearerAuth
// @Param        userID path int true "User ID of member to kick"
// @Success      200 {object} map[string]string "{"message": "Member kicked successfully"}"
// @Failure      400 {object} ErrorResponse "cannot_kick_self"
// @Failure      403 {object} ErrorResponse "not_leader"
// @Failure      404 {object} ErrorResponse "not_member"
// @Router       /parties/members/{userID} [delete]
func KickPartyMember(c *gin.Context) {
	leaderID, _ := c.Get("userID")
	targetID, err := strconv.Atoi(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if err := partyMgr.KickMember(leaderID.(uint), uint(targetID)); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member kicked successfully"})
}

// PromotePartyLeader godoc
// @Summary      Promote another member to leader (Leader only)
// @Tags         parties
// @Produce      json
// @Security     BearerAuth
// @Param        userID path int true "User ID of member to promote"
// @Success      200 {object} map[string]string "{"message": "Leader promoted successfully"}"
// @Failure      400 {object} ErrorResponse "cannot_promote_self"
// @Failure      403 {object} ErrorResponse "not_leader"
// @Failure      404 {object} ErrorResponse "not_member"
// @Router       /parties/members/{userID}/promote [post]
func PromotePartyLeader(c *gin.Context) {
	leaderID, _ := c.Get("userID")
	targetID, err := strconv.Atoi(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if err := partyMgr.PromoteLeader(leaderID.(uint), uint(targetID)); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Leader promoted successfully"})
}

// UpdateParty godoc
// @Summary      Update the party (Leader only)
// @Description  Updates party attributes. Shrinking max_size below the current member count is rejected.
// @Tags         parties
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body PartyInput true "New Party Info"
// @Success      200 {object} PartyResponse
// @Failure      400 {object} ErrorResponse "too_small"
// @Failure      403 {object} ErrorResponse "not_leader"
// @Router       /parties [put]
func UpdateParty(c *gin.Context) {
	userID, _ := c.Get("userID")

	var input PartyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	party, err := partyMgr.UpdateParty(userID.(uint), engine.PartyAttrs{MaxSize: input.MaxSize})
	if err != nil {
		respondEngineError(c, err)
		return
	}
	loadPartyResponse(c, party.ID)
}

// region --- Invites ---

// InviteToParty godoc
// @Summary      Invite a user to the party
// @Description  Creates a pending invite. Conditions are re-validated when the invite is accepted.
// @Tags         parties
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body PartyInviteInput true "Invitee"
// @Success      201 {object} PartyInviteResponse
// @Failure      404 {object} ErrorResponse "not_in_party"
// @Failure      409 {object} ErrorResponse "already_member"
// @Router       /parties/invites [post]
func InviteToParty(c *gin.Context) {
	userID, _ := c.Get("userID")

	var input PartyInviteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invite, err := partyMgr.Invite(userID.(uint), input.UserID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	database.DB.Preload("From").First(invite, invite.ID)
	c.JSON(http.StatusCreated, PartyInviteResponse{
		ID:      invite.ID,
		PartyID: invite.PartyID,
		From:    buildPublicUserResponse(invite.From),
		Status:  string(invite.Status),
	})
}

// ListPartyInvites godoc
// @Summary      List incoming pending party invites
// @Tags         parties
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} PartyInviteResponse
// @Router       /parties/invites [get]
func ListPartyInvites(c *gin.Context) {
	userID, _ := c.Get("userID")

	var invites []models.PartyInvite
	if err := database.DB.Preload("From").
		Where("to_id = ? AND status = ?", userID, models.InvitePending).
		Find(&invites).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invites"})
		return
	}

	responses := make([]PartyInviteResponse, 0, len(invites))
	for _, invite := range invites {
		responses = append(responses, PartyInviteResponse{
			ID:      invite.ID,
			PartyID: invite.PartyID,
			From:    buildPublicUserResponse(invite.From),
			Status:  string(invite.Status),
		})
	}
	c.JSON(http.StatusOK, responses)
}

// AcceptPartyInvite godoc
// @Summary      Accept a party invite
// @Description  Joins the inviting party. The party's existence, capacity and the caller's availability are re-validated now, not at invite time.
// @Tags         parties
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Invite ID"
// @Success      200 {object} map[string]string "{"message": "Invite accepted"}"
// @Failure      404 {object} ErrorResponse "not_found or party_not_found"
// @Failure      409 {object} ErrorResponse "party_full or already_in_party"
// @Router       /parties/invites/{id}/accept [post]
func AcceptPartyInvite(c *gin.Context) {
	userID, _ := c.Get("userID")
	inviteID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invite ID"})
		return
	}

	if err := partyMgr.AcceptInvite(userID.(uint), uint(inviteID)); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invite accepted"})
}

// DeclinePartyInvite godoc
// @Summary      Decline a party invite
// @Tags         parties
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Invite ID"
// @Success      200 {object} map[string]string "{"message": "Invite declined"}"
// @Failure      404 {object} ErrorResponse
// @Router       /parties/invites/{id}/decline [post]
func DeclinePartyInvite(c *gin.Context) {
	userID, _ := c.Get("userID")
	inviteID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invite ID"})
		return
	}

	if err := partyMgr.DeclineInvite(userID.(uint), uint(inviteID)); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invite declined"})
}

// CancelPartyInvite godoc
// @Summary      Cancel a sent party invite
// @Tags         parties
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Invite ID"
// @Success      200 {object} map[string]string "{"message": "Invite canceled"}"
// @Failure      403 {object} ErrorResponse "not_leader"
// @Failure      404 {object} ErrorResponse
// @Router       /parties/invites/{id}/cancel [post]
func CancelPartyInvite(c *gin.Context) {
	userID, _ := c.Get("userID")
	inviteID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invite ID"})
		return
	}

	if err := partyMgr.CancelInvite(userID.(uint), uint(inviteID)); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invite canceled"})
}

// endregion
