package logo

// Gopher32x16 is the banner shown above the kernel console.
var Gopher32x16 = Art{
	Width:  32,
	Height: 16,
	Rows:   "" +
		"......@@@@@@@@@@@@@@@@@@@@......" +
		"..@@.@..................@.@@...." +
		".@..@....@@@@......@@@@....@..@." +
		".@.@....@....@....@....@....@.@." +
		"..@....@..@@..@..@..@@..@....@.." +
		"..@....@..@@..@..@..@@..@....@.." +
		"..@.....@....@....@....@.....@.." +
		"..@......@@@@..@@..@@@@......@.." +
		"..@...........@@@@...........@.." +
		"..@............@@............@.." +
		"..@...........@..@...........@.." +
		"..@...........@..@...........@.." +
		"..@..........................@.." +
		"...@........................@..." +
		"....@@....................@@...." +
		"......@@@@@@@@@@@@@@@@@@@@......",
}

func init() {
	availableArt = append(availableArt, &Gopher32x16)
}
