package config

// Default paths
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./cardvault.db"

	// DefaultImagesPath is the default directory for downloaded card artwork
	DefaultImagesPath = "./data/images"
)
