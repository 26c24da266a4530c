// Package config loads the board description and runtime settings.
//
// Values are layered: built-in defaults, then the YAML file, then FIRMLET_*
// environment variables. The result is validated before it is returned.
//
//	board:
//	  buttons: 4
//	  leds: 4
//	  timers: 4
//	  radio: 1
//	  usb_serial: 1
//	  storage: 1
//	  aead: [chacha20poly1305, aes256gcm]
//	scheduler:
//	  queue_capacity: 64
//	  trap_policy: teardown
//	storage:
//	  path: ./data/firmlet.db
//	usb:
//	  listen: 127.0.0.1:7070
//	metrics:
//	  listen: 127.0.0.1:9090
//	logging:
//	  level: info
//	  format: console
//	applet:
//	  path: app.wasm
package config
