// Package config provides configuration parsing for islands projects.
//
// The configuration is stored in islands.json at the project root.
// This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "name": "docs",
//	  "src": "src",
//	  "dev": {
//	    "port": 3000,
//	    "host": "localhost",
//	    "hmrPort": 12321
//	  },
//	  "renderers": [
//	    {"name": "vue", "server": "@islands/renderer-vue/index.js", "client": "@islands/renderer-vue/client.js"},
//	    {"name": "react", "server": "@islands/renderer-react/index.js", "client": "@islands/renderer-react/client.js"}
//	  ],
//	  "packages": {"prefix": "/_islands/pkg"},
//	  "compiler": {"command": "node", "args": ["node_modules/islands/compiler.mjs"]},
//	  "site": {"title": "Docs"},
//	  "build": {
//	    "output": "dist",
//	    "publish": {"bucket": "my-site", "prefix": "assets/", "region": "us-east-1"}
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    return err
//	}
//
//	fmt.Println("HMR port:", cfg.Dev.HMRPort)
package config
