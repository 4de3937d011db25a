// Command podium generates podcast episode audio from dialogue scripts:
// per-line speech synthesis, scene mixing with ambience beds, and final
// episode assembly.
package main
