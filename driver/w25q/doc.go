// Package w25q drives Winbond W25Q-family (and compatible) serial NOR
// flash over a periph.io SPI connection.
//
// Every erase and program waits on the BUSY bit of the status register
// before returning, so the chip is idle whenever a method returns without
// error. Parts larger than 16 MiB are switched to 4-byte addressing by
// Init.
//
//	f := w25q.New(conn, cs)
//	if err := f.Init(ctx); err != nil {
//	    return err
//	}
//	fmt.Println(f.Params().Name)
package w25q
