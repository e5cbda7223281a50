package app

import "fmt"

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(message string) *DomainError {
	return domainError(422, "VALIDATION_ERROR", message, nil)
}

func notFoundError(message string) *DomainError {
	return domainError(404, "NOT_FOUND", message, nil)
}

func notAMemberError(message string) *DomainError {
	return domainError(403, "NOT_A_MEMBER", message, nil)
}

func immutableDefaultError() *DomainError {
	return domainError(409, "IMMUTABLE_DEFAULT_ROLE", "Default roles cannot be modified or deleted", nil)
}

func roleInUseError() *DomainError {
	return domainError(409, "ROLE_IN_USE", "Role is assigned to team members; reassign them first", nil)
}

func alreadyMemberError() *DomainError {
	return domainError(409, "ALREADY_MEMBER", "User is already a member of this team", nil)
}

func forbiddenError(message string) *DomainError {
	return domainError(403, "FORBIDDEN", message, nil)
}

func cannotRemoveOwnerError() *DomainError {
	return domainError(403, "CANNOT_REMOVE_OWNER", "The team owner cannot be removed", nil)
}

func roleSetupError() *DomainError {
	return domainError(500, "ROLE_SETUP_FAILED", "Default roles could not be provisioned for this team", nil)
}

func membershipCreationError(err error) *DomainError {
	return domainError(500, "MEMBERSHIP_CREATE_FAILED", "Membership record could not be created", err.Error())
}

// persistenceError wraps an underlying store failure; the store error text
// travels in Details so callers can render a stable message.
func persistenceError(action string, err error) *DomainError {
	return domainError(500, "PERSISTENCE_ERROR", fmt.Sprintf("Storage operation failed: %s", action), err.Error())
}
