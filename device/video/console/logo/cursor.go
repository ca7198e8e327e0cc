package logo

// Cursor is the mouse pointer drawn by the kernel once it takes over the
// framebuffer.
var Cursor = Art{
	Width:  12,
	Height: 19,
	Rows:   "" +
		"@..........." +
		"@@.........." +
		"@.@........." +
		"@..@........" +
		"@...@......." +
		"@....@......" +
		"@.....@....." +
		"@......@...." +
		"@.......@..." +
		"@........@.." +
		"@.........@." +
		"@......@@@@@" +
		"@...@..@...." +
		"@..@@..@...." +
		"@.@..@..@..." +
		"@@...@..@..." +
		"@.....@..@.." +
		"......@..@.." +
		".......@@...",
}
