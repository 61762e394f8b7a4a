package common

// Virtual key codes delivered by the window's key callbacks.
// These values match GLFW key codes, which use ASCII values for printable keys.
const (
	KeyP     = 80  // P key (ASCII)
	KeySpace = 32  // Spacebar (ASCII)
	KeyEsc   = 256 // Escape key (GLFW)
)
