// Package paths builds remote locations following the storage layout:
//
//	/users/{userId}                      user root
//	/users/{userId}/{folderName}         folder
//	{folder or user root}/{storedName}   file
//
// The layout is shared with existing deployments and must not change.
package paths

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/filevault/internal/common"
)

// UserRoot returns the namespace directory of userID.
func UserRoot(userID int64) string {
	return common.UsersRoot + "/" + strconv.FormatInt(userID, 10)
}

// Folder returns the remote directory of a user's folder.
func Folder(userID int64, name string) string {
	return UserRoot(userID) + "/" + name
}

// File returns the remote path of storedName inside dir.
func File(dir, storedName string) string {
	return dir + "/" + storedName
}

// LocalFolder is the logical local path recorded for a folder.
func LocalFolder(userID int64, name string) string {
	return "./uploads/" + strconv.FormatInt(userID, 10) + "/" + name
}

// ValidateName accepts a single, non-empty path element.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", common.ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", common.ErrInvalidName, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a separator", common.ErrInvalidName, name)
	}
	return nil
}

// ValidateRemote accepts absolute, already clean remote paths.
func ValidateRemote(p string) error {
	if !strings.HasPrefix(p, "/") || path.Clean(p) != p {
		return fmt.Errorf("%w: %q", common.ErrInvalidPath, p)
	}
	return nil
}

// InUserNamespace reports whether p lies strictly below the user's root.
func InUserNamespace(userID int64, p string) bool {
	if ValidateRemote(p) != nil {
		return false
	}
	return strings.HasPrefix(p, UserRoot(userID)+"/")
}

// Under reports whether p lies strictly below dir.
func Under(dir, p string) bool {
	return ValidateRemote(p) == nil && strings.HasPrefix(p, dir+"/")
}
