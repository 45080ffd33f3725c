// Command guestpost-catalog loads scraped guest-post sites into the catalog.
package main

import "github.com/JakeFAU/guestpost-catalog/cmd"

func main() {
	cmd.Execute()
}
