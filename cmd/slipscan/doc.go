// Command slipscan scans Slippi replay directories, summarizes match results,
// and looks up ranked standings for players.
package main
