package model

// User-facing flash messages.
const (
	MsgInvalidRequest         = "The request is not valid."
	MsgInvalidProcess         = "Invalid process. Please submit the form again."
	MsgUserDuplicate          = "A user with this email address is already registered."
	MsgNewRegistrationSuccess = "Registration complete. Please log in."
	MsgPasswordTooLong        = "The password is too long."
	MsgFailureToLogin         = "The email address or password is incorrect."
	MsgLoginSuccessful        = "You are now logged in."
	MsgLogoutSuccessful       = "You have been logged out."
	MsgTooManyAttempts        = "Too many login attempts. Please wait a moment and try again."
	MsgOTPRequired            = "Enter the code from your authenticator app."
	MsgOTPInvalid             = "The code is incorrect or has expired."
	MsgOTPEnabled             = "Two-factor authentication is now enabled."
	MsgAccountCancelled       = "Your account has been cancelled."
	MsgAccountMismatch        = "You can only cancel your own account."
	MsgItemCreated            = "The item has been added."
	MsgItemUpdated            = "The item has been updated."
	MsgItemCompleted          = "The item has been marked as finished."
	MsgItemDeleted            = "The item has been deleted."
	MsgItemNotFound           = "The item does not exist."
	MsgUserNotFound           = "The user does not exist."
	MsgDatabaseError          = "A database error occurred. Please try again later."
	MsgExceptionError         = "An unexpected error occurred. Please try again later."
)
