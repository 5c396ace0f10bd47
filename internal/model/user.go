package model

import "time"

// User groups control what a user may do.  USER is the default for new
// registrations, MODERATOR may manage the catalog, ADMIN additionally
// manages users, carts and payments.
const (
    GroupUser      = "USER"
    GroupModerator = "MODERATOR"
    GroupAdmin     = "ADMIN"
)

// User represents an application user record as stored in the `users`
// table.  Accounts start inactive and become active once the activation
// token sent by email is redeemed.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address (stored lower-cased).
//  PasswordHash – bcrypt hashed password.
//  Group        – user group name (USER, MODERATOR or ADMIN).
//  IsActive     – whether the account has been activated.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Group        string    // users.user_group
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// ValidGroup reports whether name is one of the known user groups.
func ValidGroup(name string) bool {
    switch name {
    case GroupUser, GroupModerator, GroupAdmin:
        return true
    }
    return false
}
