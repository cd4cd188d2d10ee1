package constants

import "math"

const SpeedOfLight float64 = 299792458.       // [m s^-1]
const ElementaryCharge = 1.602176634e-19      // C
const ElectronMass float64 = 9.1093837139e-31 // [kg]
const ProtonMass float64 = 1.67262192595e-27  // [kg]

const FourPi = 4. * math.Pi
