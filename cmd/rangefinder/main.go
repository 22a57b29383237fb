// Rangefinder detects objects in a camera feed, tracks them across frames and
// announces how far away they are.
package main

func main() {
	Execute()
}
