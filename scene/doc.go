// Package scene loads compositor scenes from TOML files.
//
// A scene names the canvas, the mask and a list of layers, each backed by
// an image, a video (an animated GIF or a directory of frames) or a model
// path. Every asset is decoded by Load, so a Scene that loaded without
// error turns into layers without further I/O:
//
//	[canvas]
//	width = 1280
//	height = 720
//	extent = [1.0, 1.0]
//
//	[mask]
//	mode = "image"
//	image = "shape.png"
//
//	[[layer]]
//	id = 1
//	image = "poster.jpg"
//	offset = [0.0, 0.0, 0.0]
//
//	[[layer]]
//	id = 2
//	video = "clip/"
//	fps = 24
//	alpha = "left-right"
//	offset = [0.2, 0.1, 1.0]
//	scale = 0.5
//
// Relative asset paths resolve against the scene file's directory.
// [Watcher] reloads a scene when the file or any asset it names changes.
package scene
