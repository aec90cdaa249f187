// Package config loads edgerules.json project configuration.
//
// A minimal configuration:
//
//	{
//	  "output": "hybrid",
//	  "fallback": "/.netlify/functions/entry",
//	  "manifest": "routes.json",
//	  "build": {
//	    "output": "dist",
//	    "format": "directory"
//	  }
//	}
//
// Relative paths are resolved against the directory containing the file.
// Command-line flags override the loaded values.
package config
