// Package loader downloads firmware images through the host entry points
// of a flash algorithm, in the order a debugger's flash download does.
//
// A download runs three phases, each in its own session:
//
//  1. Erase: Init(fnc=1), BlankCheck then EraseSector for every sector the
//     image touches (or a single EraseChip), UnInit
//  2. Program: Init(fnc=2), ProgramPage for every page, padded with the
//     erased value, UnInit
//  3. Verify: Init(fnc=3), Verify for every page, UnInit
//
// Example:
//
//	chip := memflash.New(32<<20, 4096)
//	entry := algo.NewEntry(algo.New(chip))
//	l := loader.New(entry, flashdev.Default(),
//	    loader.WithProgressCallback(func(p loader.Progress) {
//	        fmt.Printf("[%s] %.1f%%\n", p.Phase, p.Percentage)
//	    }),
//	)
//
//	img, _ := image.Parse("firmware.hex", 0x90000000)
//	if err := l.Download(ctx, img); err != nil {
//	    log.Fatal(err)
//	}
package loader
