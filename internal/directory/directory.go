package directory

import (
	"errors"
	"time"

	"squadup/backend/internal/models"

	"gorm.io/gorm"
)

// ErrConflict means a conditional reference update found the user's
// current back-reference different from the expected prior value. The
// caller's view of the world was stale.
var ErrConflict = errors.New("directory: reference conflict")

// ErrNotFound means no user record exists for the given id.
var ErrNotFound = errors.New("directory: user not found")

// GetUser loads one user record.
func GetUser(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SetPartyRef sets a user's party back-reference to newID, but only if
// the reference still equals expected. The guard and the write are one
// UPDATE statement, so the check cannot go stale between read and write.
// Joining a party also stamps the membership sequence used for leader
// succession ordering.
func SetPartyRef(tx *gorm.DB, userID uint, expected, newID *uint) error {
	values := map[string]interface{}{"party_id": newID}
	if newID != nil {
		values["party_joined_seq"] = uint64(time.Now().UnixNano())
	} else {
		values["party_joined_seq"] = 0
	}
	return setRef(tx, userID, "party_id", expected, values)
}

// SetLobbyRef sets a user's lobby back-reference to newID, but only if
// the reference still equals expected.
func SetLobbyRef(tx *gorm.DB, userID uint, expected, newID *uint) error {
	return setRef(tx, userID, "current_lobby_id", expected, map[string]interface{}{
		"current_lobby_id": newID,
	})
}

func setRef(tx *gorm.DB, userID uint, column string, expected *uint, values map[string]interface{}) error {
	q := tx.Model(&models.User{}).Where("id = ?", userID)
	if expected == nil {
		q = q.Where(column + " IS NULL")
	} else {
		q = q.Where(column+" = ?", *expected)
	}
	res := q.Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}
